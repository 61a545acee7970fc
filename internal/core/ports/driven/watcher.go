package driven

import "context"

// StagingWatcher reports files that appear or change under the staging
// directory.
type StagingWatcher interface {
	// Watch emits absolute paths of created or rewritten files until ctx
	// is done, then closes the channel.
	Watch(ctx context.Context) (<-chan string, error)
}
