package main

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"purchase_worker/adapter/out/mailfile"
	"purchase_worker/core/domain"
	"purchase_worker/core/service/extraction"
)

// unwrapCmd shows what the forward unwrapper recovers from a file
var unwrapCmd = &cobra.Command{
	Use:   "unwrap <file>",
	Short: "Show the original email inside a forwarded message",
	Long: `Unwrap a forwarded email and print the recovered original sender,
subject, forwarder note and body.

Examples:
  mailextract unwrap --pretty fwd-from-mentor.eml`,
	Args: cobra.ExactArgs(1),
	RunE: runUnwrap,
}

// UnwrapResult is the unwrap command output.
type UnwrapResult struct {
	Forwarded bool                          `json:"forwarded"`
	Envelope  *domain.ForwardedEmailContent `json:"envelope,omitempty"`
	Original  *domain.EmailContent          `json:"original,omitempty"`
	Note      string                        `json:"note,omitempty"`
}

func runUnwrap(cmd *cobra.Command, args []string) error {
	email, err := mailfile.LoadFile(args[0])
	if err != nil {
		return err
	}

	res := unwrapEmail(extraction.NewPipeline(nil), email)

	var data []byte
	if pretty {
		data, err = json.MarshalIndent(res, "", "  ")
	} else {
		data, err = json.Marshal(res)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

func unwrapEmail(p *extraction.Pipeline, email *domain.EmailContent) UnwrapResult {
	pr := p.Process(email)
	if pr.Forwarded == nil {
		return UnwrapResult{}
	}
	return UnwrapResult{
		Forwarded: true,
		Envelope:  pr.Forwarded,
		Original:  pr.Unwrapped,
		Note:      pr.ForwarderNote(),
	}
}
