package dump

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFDListingNeverReturnsError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := FDListing(t.Context(), &buf, os.Getpid())
	assert.NoError(t, err)
	assert.NotEmpty(t, buf.String())
}

func TestFDListingReportsHighestFDWhenEveryOtherStrategyFails(t *testing.T) {
	t.Parallel()

	// A pid that cannot exist makes lsof, gopsutil, and the raw /proc
	// listing all fail, leaving only the fdtable.Highest watermark.
	const bogusPID = 999999999

	var buf bytes.Buffer
	err := FDListing(t.Context(), &buf, bogusPID)
	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "highest open descriptor is")
}
