package agcdkutil

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
)

// SameEnvDimension reports whether two environment dimensions (accounts or
// regions) denote the same place. Two concrete values match only when
// equal. An unresolved token matches anything, including another token:
// values unknown until a later resolution phase are optimistically assumed
// compatible. This is intentional even though it cannot be proven until
// resolution.
func SameEnvDimension(dim1, dim2 string) bool {
	return dim1 == dim2 ||
		*awscdk.Token_IsUnresolved(dim1) ||
		*awscdk.Token_IsUnresolved(dim2)
}

// StackEnv returns the account and region of the stack owning the given
// scope. Either may be an unresolved token when the stack is
// environment-agnostic.
func StackEnv(scope awscdk.Stack) (account, region string) {
	return *scope.Account(), *scope.Region()
}
