package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaiso/hal-health-check/internal/domain"
)

// NewCheckCmd создаёт команду check.
func NewCheckCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var domainCheck bool
	var zoneID string
	var wait bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "check URL [URL...]",
		Short: "Publish a health check request and wait for the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			req, err := BuildRequest(args, domainCheck, zoneID)
			if err != nil {
				return err
			}

			traceID := uuid.New().String()
			res, err := clientFn().Check(cmd.Context(), req, traceID, wait, timeout)
			if err != nil {
				return err
			}

			if res == nil {
				out.Success(fmt.Sprintf("Request published, trace-id %s", traceID))
				return nil
			}

			out.PrintResult(res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&domainCheck, "domain-check", false, "Reconcile DNS A-record for every URL")
	cmd.Flags().StringVar(&zoneID, "zone", "", "Hosted zone ID for --domain-check")
	cmd.Flags().BoolVar(&wait, "wait", true, "Wait for the result on the results exchange")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "How long to wait for the result")

	return cmd
}

// BuildRequest собирает CheckRequest из аргументов команды.
func BuildRequest(urls []string, domainCheck bool, zoneID string) (domain.CheckRequest, error) {
	req := domain.CheckRequest{URLs: make([]domain.URLSpec, 0, len(urls))}

	var zone *string
	if zoneID != "" {
		zone = &zoneID
	}

	for _, u := range urls {
		spec := domain.URLSpec{
			URL:          u,
			DomainCheck:  domainCheck,
			HostedZoneID: zone,
		}
		if err := spec.Validate(); err != nil {
			return domain.CheckRequest{}, err
		}
		req.URLs = append(req.URLs, spec)
	}

	return req, nil
}
