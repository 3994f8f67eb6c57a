package httpapi

import (
	"errors"

	"datamarket-settlement/pkg/errutil"
	"datamarket-settlement/services/ledger"
	"datamarket-settlement/services/payout"
	"datamarket-settlement/services/settlement"

	"github.com/gin-gonic/gin"
)

// Error renders the last error pushed onto the gin context. Service sentinel
// errors map onto stable API codes; anything unrecognized is an internal
// error with the cause hidden from the client.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil {
			return
		}

		v := asBaseError(last.Err)
		c.JSON(v.Code.HTTPStatus(), v.JSON())
	}
}

func asBaseError(err error) errutil.BaseError {
	var base errutil.BaseError
	if errors.As(err, &base) {
		return base
	}

	code := errutil.StatusInternal
	message := "internal error"

	switch {
	case errors.Is(err, payout.ErrPayoutNotFound):
		code, message = errutil.StatusNotFound, err.Error()
	case errors.Is(err, payout.ErrInsufficientBalance),
		errors.Is(err, payout.ErrBelowMinimumThreshold):
		code, message = errutil.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, payout.ErrAlreadyFinalized),
		errors.Is(err, ledger.ErrDuplicateReference):
		code, message = errutil.StatusConflict, err.Error()
	case errors.Is(err, settlement.ErrPayoutProcessing):
		code, message = errutil.StatusInternal, err.Error()
	}

	return errutil.BaseError{Code: code, Message: message}
}

func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
