package sigma

import (
	"github.com/aaronwong1989/sigmatcp/comm/logging"
)

var log = logging.GetDefaultLogger()
