// Package testutil contains helper builders, mocks and fakes used across
// tests to reduce boilerplate when constructing artifacts and definitions and
// when scripting user interaction. Mocks are built on testify/mock. They are
// not intended for production usage.
package testutil
