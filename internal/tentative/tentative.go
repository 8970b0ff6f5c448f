// Package tentative implements the apply, confirm-or-revert pattern for
// optimistic mutations: apply the change to local state, fire the remote
// write, and replay the inverse local mutation if the write fails.
package tentative

// Apply runs the local mutation, then the remote write. If the write
// returns an error, revert is invoked and the error is returned.
func Apply(apply, revert func(), write func() error) error {
	apply()
	if err := write(); err != nil {
		revert()
		return err
	}
	return nil
}
