// Package types provides core types used across the teamflow runtime.
// This package has ZERO dependencies on other teamflow packages to avoid
// circular imports. All other packages should import types from here.
package types
