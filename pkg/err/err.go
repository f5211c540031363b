package errprocess

import (
	"errors"
	"fmt"

	"reelconnect_service/pkg/logger"

	"go.uber.org/zap"
)

// Set set err info
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return errors.New(errMsg)
}

// Wrap log errMsg with the cause and return a wrapped error
func Wrap(errMsg string, err error) error {
	logger.Log.Error(errMsg, zap.Error(err))
	return fmt.Errorf("%s: %w", errMsg, err)
}
