// Package testsupport builds temporary configurations and provisioned stores
// for package tests.
package testsupport
