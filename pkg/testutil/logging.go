package testutil

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

// QuietLogs discards log output for the rest of the test unless the test
// binary runs with -v.
func QuietLogs(t testing.TB) {
	if testing.Verbose() {
		logrus.SetLevel(logrus.TraceLevel)
		return
	}

	original := logrus.StandardLogger().Out
	logrus.SetOutput(io.Discard)
	t.Cleanup(func() {
		logrus.SetOutput(original)
	})
}
