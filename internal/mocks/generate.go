// Package mocks provides mock implementations for testing the auth gateway.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the ports interfaces. The mocks are generated using go:generate directives
// and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	backend := mocks.NewMockBackend(ctrl)
//	backend.EXPECT().Login(gomock.Any(), gomock.Any()).Return(result, nil)
package mocks

// Generate mock for the Backend interface from internal/ports.
// This creates MockBackend with methods for all Backend interface methods:
// Login, Refresh, WhoAmI, Logout
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=backend_mock.go github.com/triviahub/th-auth-api/internal/ports Backend
