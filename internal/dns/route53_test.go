package dns

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/aws/smithy-go"
	"github.com/google/go-cmp/cmp"
)

type fakeRoute53 struct {
	mu          sync.Mutex
	input       *route53.ChangeResourceRecordSetsInput
	changeErr   error
	status      types.ChangeStatus
	pendingPoll int
	polls       int
}

func (f *fakeRoute53) ChangeResourceRecordSets(_ context.Context, in *route53.ChangeResourceRecordSetsInput, _ ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input = in
	if f.changeErr != nil {
		return nil, f.changeErr
	}
	return &route53.ChangeResourceRecordSetsOutput{
		ChangeInfo: &types.ChangeInfo{Id: aws.String("/change/C1"), Status: f.status},
	}, nil
}

func (f *fakeRoute53) GetChange(_ context.Context, _ *route53.GetChangeInput, _ ...func(*route53.Options)) (*route53.GetChangeOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	status := types.ChangeStatusPending
	if f.polls > f.pendingPoll {
		status = types.ChangeStatusInsync
	}
	return &route53.GetChangeOutput{ChangeInfo: &types.ChangeInfo{Id: aws.String("/change/C1"), Status: status}}, nil
}

func TestRoute53Upserter_Upsert(t *testing.T) {
	api := &fakeRoute53{status: types.ChangeStatusPending}
	u := newRoute53Upserter(api, Route53Config{})

	changeID, err := u.UpsertARecord(context.Background(), "Z1", "a.example.", "198.51.100.7", 300)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changeID != "/change/C1" {
		t.Errorf("expected /change/C1, got %s", changeID)
	}
	if api.polls != 0 {
		t.Errorf("should not poll without WaitForSync, polled %d", api.polls)
	}

	if got := aws.ToString(api.input.HostedZoneId); got != "Z1" {
		t.Errorf("expected zone Z1, got %s", got)
	}
	changes := api.input.ChangeBatch.Changes
	if len(changes) != 1 {
		t.Fatalf("expected one change, got %d", len(changes))
	}
	if changes[0].Action != types.ChangeActionUpsert {
		t.Errorf("expected UPSERT, got %s", changes[0].Action)
	}

	rrs := changes[0].ResourceRecordSet
	got := struct {
		Name   string
		Type   types.RRType
		TTL    int64
		Values []string
	}{
		Name: aws.ToString(rrs.Name),
		Type: rrs.Type,
		TTL:  aws.ToInt64(rrs.TTL),
	}
	for _, rr := range rrs.ResourceRecords {
		got.Values = append(got.Values, aws.ToString(rr.Value))
	}

	want := struct {
		Name   string
		Type   types.RRType
		TTL    int64
		Values []string
	}{"a.example.", types.RRTypeA, 300, []string{"198.51.100.7"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("record set mismatch (-want +got):\n%s", diff)
	}
}

func TestRoute53Upserter_WaitForSync(t *testing.T) {
	api := &fakeRoute53{status: types.ChangeStatusPending, pendingPoll: 2}
	u := newRoute53Upserter(api, Route53Config{
		WaitForSync:  true,
		SyncInterval: 5 * time.Millisecond,
		SyncTimeout:  time.Second,
	})

	if _, err := u.UpsertARecord(context.Background(), "Z1", "a.example.", "198.51.100.7", 300); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if api.polls != 3 {
		t.Errorf("expected 3 polls, got %d", api.polls)
	}
}

func TestRoute53Upserter_WaitSkippedWhenInsync(t *testing.T) {
	api := &fakeRoute53{status: types.ChangeStatusInsync}
	u := newRoute53Upserter(api, Route53Config{WaitForSync: true, SyncInterval: time.Millisecond})

	if _, err := u.UpsertARecord(context.Background(), "Z1", "a.example.", "198.51.100.7", 300); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if api.polls != 0 {
		t.Errorf("expected no polls, got %d", api.polls)
	}
}

func TestRoute53Upserter_APIError(t *testing.T) {
	api := &fakeRoute53{changeErr: &smithy.GenericAPIError{
		Code:    "NoSuchHostedZone",
		Message: "No hosted zone found with ID: Z1",
	}}
	u := newRoute53Upserter(api, Route53Config{})

	_, err := u.UpsertARecord(context.Background(), "Z1", "a.example.", "198.51.100.7", 300)
	if !errors.Is(err, ErrUpsert) {
		t.Fatalf("expected ErrUpsert, got %v", err)
	}
	if !strings.Contains(err.Error(), "NoSuchHostedZone") {
		t.Errorf("error should carry api code: %v", err)
	}
}

func TestRoute53Upserter_TransportError(t *testing.T) {
	api := &fakeRoute53{changeErr: errors.New("dial tcp: i/o timeout")}
	u := newRoute53Upserter(api, Route53Config{})

	_, err := u.UpsertARecord(context.Background(), "Z1", "a.example.", "198.51.100.7", 300)
	if !errors.Is(err, ErrUpsert) {
		t.Fatalf("expected ErrUpsert, got %v", err)
	}
}

func TestRoute53Upserter_SyncTimeoutKeepsChangeID(t *testing.T) {
	api := &fakeRoute53{status: types.ChangeStatusPending, pendingPoll: 100}
	u := newRoute53Upserter(api, Route53Config{
		WaitForSync:  true,
		SyncInterval: 5 * time.Millisecond,
		SyncTimeout:  30 * time.Millisecond,
	})

	changeID, err := u.UpsertARecord(context.Background(), "Z1", "a.example.", "198.51.100.7", 300)
	if !errors.Is(err, ErrSyncPending) {
		t.Fatalf("expected ErrSyncPending, got %v", err)
	}
	if changeID != "/change/C1" {
		t.Errorf("change id should be returned with sync error, got %q", changeID)
	}
}

func TestVerifyCredentials(t *testing.T) {
	tests := []struct {
		name     string
		provider aws.CredentialsProvider
		wantErr  bool
	}{
		{"no provider", nil, true},
		{
			name: "retrieve fails",
			provider: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
				return aws.Credentials{}, errors.New("no EC2 IMDS role found")
			}),
			wantErr: true,
		},
		{
			name: "static",
			provider: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
				return aws.Credentials{AccessKeyID: "AKID", SecretAccessKey: "secret"}, nil
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyCredentials(context.Background(), aws.Config{Credentials: tt.provider})
			if tt.wantErr {
				if !errors.Is(err, ErrNoCredentials) {
					t.Errorf("expected ErrNoCredentials, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
