package restyutil

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

// DumpMessages writes every completed exchange of client into output. Form
// fields named in redact never reach the output.
//
// `output` can be nil, in which case this is a no-op.
func DumpMessages(client *resty.Client, output InstrumentOutput, redact ...string) {
	if output == nil {
		return
	}

	var idcounter uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		id := strconv.FormatUint(atomic.AddUint64(&idcounter, 1), 10)
		output.Write(id, formatHttpMessage(res, redact))
		return nil
	})
	client.OnError(func(req *resty.Request, err error) {
		id := strconv.FormatUint(atomic.AddUint64(&idcounter, 1), 10)
		output.Write(id, fmt.Sprintf(
			"---- REQUEST ----\n\n%s %s\n\n%s\n\n---- ERROR ----\n\n%s",
			req.Method, req.URL,
			formatRequestBody(req.RawRequest, redact),
			err.Error(),
		))
	})
}
