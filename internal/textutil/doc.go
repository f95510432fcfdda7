// Package textutil provides text processing utilities for titling and
// filesystem-safe naming.
//
// The primary use cases are:
//   - Deriving display titles from source file paths
//   - Slugging titles into lowercase ASCII identifiers for package
//     directories and bucket object prefixes
//
// Slugging decomposes accented characters before stripping, so non-ASCII
// titles keep their base letters instead of collapsing to dashes.
package textutil
