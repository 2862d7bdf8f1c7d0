package models_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mmdatafocus/ledger_backend/models"
	"github.com/mmdatafocus/ledger_backend/utils"
	"github.com/stretchr/testify/assert"
)

func TestLocalizedMessage(t *testing.T) {
	wrapped := fmt.Errorf("invoice 7: %w", models.ErrPeriodLocked)

	assert.Equal(t, "The date falls inside a closed financial period.", models.LocalizedMessage(context.Background(), wrapped))

	ar := utils.SetLocaleInContext(context.Background(), "ar-EG")
	assert.Equal(t, "التاريخ يقع ضمن فترة مالية مغلقة.", models.LocalizedMessage(ar, wrapped))

	fr := utils.SetLocaleInContext(context.Background(), "fr")
	assert.Equal(t, "The journal entry has no lines.", models.LocalizedMessage(fr, models.ErrEmptyEntry))

	other := errors.New("connection refused")
	assert.Equal(t, "connection refused", models.LocalizedMessage(ar, other))
	assert.Empty(t, models.LocalizedMessage(ar, nil))
}
