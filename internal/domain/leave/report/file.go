// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package report

import (
	"context"
	"fmt"

	"github.com/ManuGH/leavegate/internal/domain/leave/model"
	xglog "github.com/ManuGH/leavegate/internal/log"
	"github.com/google/renameio/v2"
)

// WriteFile writes the CSV export to path atomically: readers see either the
// previous file or the complete new one.
func WriteFile(ctx context.Context, path string, recs []*model.LeaveRequest) error {
	logger := xglog.FromContext(ctx)

	pendingFile, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending export file: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending export file")
		}
	}()

	if err := WriteCSV(pendingFile, recs); err != nil {
		return fmt.Errorf("write export data: %w", err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace export file: %w", err)
	}
	return nil
}
