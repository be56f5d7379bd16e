package service

import (
	"context"
	"encoding/json"

	"stepauth/internal/entity"
	"stepauth/internal/repository"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// recordSecurity writes an audit row. Logging must never fail the calling
// operation, so errors are swallowed by callers.
func recordSecurity(
	ctx context.Context,
	logs repository.SecurityLogRepository,
	accountID *uuid.UUID,
	ipAddress *string,
	action entity.SecurityAction,
	metadata map[string]any,
) error {
	if logs == nil {
		return nil
	}
	var payload datatypes.JSON
	if metadata != nil {
		bytes, err := json.Marshal(metadata)
		if err != nil {
			return err
		}
		payload = datatypes.JSON(bytes)
	}
	return logs.Log(ctx, &entity.SecurityLog{
		AccountID: accountID,
		IPAddress: ipAddress,
		Action:    action,
		Metadata:  payload,
	})
}
