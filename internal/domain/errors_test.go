package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceUnavailableError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewSourceUnavailableError(SourceTypePubMed, cause)

	assert.Contains(t, err.Error(), "pubmed")
	assert.Contains(t, err.Error(), "connection refused")
	assert.True(t, errors.Is(err, ErrSourceUnavailable))

	var typed *SourceUnavailableError
	assert.True(t, errors.As(err, &typed))
	assert.Equal(t, SourceTypePubMed, typed.Source)
}

func TestMalformedRecordError(t *testing.T) {
	err := NewMalformedRecordError(SourceTypeBioRxiv, "unparseable date")

	assert.Contains(t, err.Error(), "biorxiv")
	assert.Contains(t, err.Error(), "unparseable date")
	assert.True(t, errors.Is(err, ErrMalformedRecord))
	assert.False(t, errors.Is(err, ErrSourceUnavailable))
}

func TestExternalAPIError(t *testing.T) {
	cause := errors.New("boom")
	err := NewExternalAPIError("PubMed", 503, "service down", cause)

	assert.Contains(t, err.Error(), "PubMed")
	assert.Contains(t, err.Error(), "503")
	assert.True(t, errors.Is(err, cause))
}
