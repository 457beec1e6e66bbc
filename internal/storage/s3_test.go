package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestArchiveKey(t *testing.T) {
	at := time.Date(2024, 3, 9, 17, 4, 5, 0, time.FixedZone("CET", 3600))

	assert.Equal(t, "tables/20240309T160405Z.csv", ArchiveKey(at))
}
