package cli

import (
	"github.com/spf13/cobra"

	"github.com/skelly-dev/ripple/internal/critpath"
)

func RunCritical(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, args)
	if err != nil {
		return err
	}
	_, g, err := s.currentGraph(cmd)
	if err != nil {
		return err
	}

	res := critpath.Find(g, s.critpathOptions())
	if err := PrintCriticalSummary(s.out, CriticalSummary{Mode: "critical", RootPath: s.root, Result: res}, s.asJSON); err != nil {
		return err
	}
	return s.finish()
}
