package task

import (
	"time"

	"github.com/KnpLabs/kitipy-continued/internal/errors"
)

// WaitFor polls a predicate until it reports true, sleeping interval between
// attempts. It gives up after maxChecks attempts and fails with a task error
// naming the label. This is the only retry primitive: commands themselves
// run to completion with no timeout.
func WaitFor(pred func() bool, interval time.Duration, maxChecks int, label string) error {
	for i := 0; i < maxChecks; i++ {
		if pred() {
			return nil
		}
		if i < maxChecks-1 {
			time.Sleep(interval)
		}
	}
	return errors.New(errors.ErrTask,
		"Timed out waiting for "+label,
		"The condition never became true; check the dependent service")
}
