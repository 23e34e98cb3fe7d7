// Package agcdkutil provides utilities for AWS CDK applications in Go.
//
// This package includes helpers for:
//   - Environment comparison with unresolved-token awareness
//   - CDK context management
//   - Multi-region and multi-deployment stack management
package agcdkutil
