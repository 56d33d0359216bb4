package api

import (
	"fmt"
	"strings"
)

func validateSolveRequest(req *SolveRequest) error {
	if len(req.Problem) == 0 {
		return fmt.Errorf("problem is required")
	}
	if req.NotifyURL != "" && !strings.HasPrefix(req.NotifyURL, "http://") && !strings.HasPrefix(req.NotifyURL, "https://") {
		return fmt.Errorf("notifyUrl must be an http(s) URL")
	}
	if req.NotifySecret != "" && req.NotifyURL == "" {
		return fmt.Errorf("notifySecret requires notifyUrl")
	}
	o := req.Options
	if o == nil {
		return nil
	}
	if o.Threads < 0 || o.Threads > 32 {
		return fmt.Errorf("threads must be in [0,32]")
	}
	if o.ExplorationLevel != nil && (*o.ExplorationLevel < 0 || *o.ExplorationLevel > 5) {
		return fmt.Errorf("explorationLevel must be in [0,5]")
	}
	if o.TimeLimitMs < 0 {
		return fmt.Errorf("timeLimitMs must be >= 0")
	}
	if o.IterationsLimit < 0 {
		return fmt.Errorf("iterationsLimit must be >= 0")
	}
	return nil
}
