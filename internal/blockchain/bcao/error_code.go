package bcao

import (
	"context"

	"gitee.com/czyczk/fabric-netadmin/pkg/errorcode"
	"github.com/pkg/errors"
)

// GetClassifiedError is a general error handler that makes sure an error returned from the ledger network carries a kind. Already classified errors are returned as they are.
func GetClassifiedError(operation string, err error) error {
	if err == nil {
		return nil
	} else if _, ok := errorcode.As(err); ok {
		return err
	} else if errors.Is(err, context.DeadlineExceeded) {
		return errorcode.Wrap(err, errorcode.KindLedger, "%v 超时", operation)
	} else {
		return errorcode.Wrap(err, errorcode.KindLedger, "%v 失败", operation)
	}
}
