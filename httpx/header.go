package httpx

import (
	"net/http"
	"strconv"

	"github.com/clinia/flagx/errorx"
)

const CliniaHealthyHeaderKey = "X-Clinia-Healthy"

// SetCliniaHealthHeader tells load balancers whether this instance can serve.
func SetCliniaHealthHeader(w http.ResponseWriter, healthy bool) error {
	if w == nil {
		return errorx.InternalErrorf("response writer can not be nil")
	}
	w.Header().Set(CliniaHealthyHeaderKey, strconv.FormatBool(healthy))
	return nil
}
