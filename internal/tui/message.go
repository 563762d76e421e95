package tui

import "github.com/hijjiri/echo-form/internal/usecase/submission"

// resolvedMsg は echo 呼び出しの結果。Update で Controller.Resolve に渡す。
type resolvedMsg struct {
	ticket submission.Ticket
	reply  string
	err    error
}
