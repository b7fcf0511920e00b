package dns

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/aws/smithy-go"
	"k8s.io/apimachinery/pkg/util/wait"
)

const (
	defaultSyncInterval = 2 * time.Second
	defaultSyncTimeout  = 2 * time.Minute
)

// Upserter создаёт или обновляет A-запись в hosted zone.
// Возвращает идентификатор изменения у провайдера.
type Upserter interface {
	UpsertARecord(ctx context.Context, zoneID, fqdn, ipv4 string, ttl int64) (string, error)
}

// route53API — подмножество клиента Route 53, которое используется здесь.
type route53API interface {
	ChangeResourceRecordSets(ctx context.Context, params *route53.ChangeResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error)
	GetChange(ctx context.Context, params *route53.GetChangeInput, optFns ...func(*route53.Options)) (*route53.GetChangeOutput, error)
}

// Route53Config — конфигурация Route53Upserter.
type Route53Config struct {
	// WaitForSync — ждать, пока изменение перейдёт в INSYNC.
	WaitForSync bool

	// SyncInterval — интервал опроса GetChange (default: 2s).
	SyncInterval time.Duration

	// SyncTimeout — максимальное ожидание INSYNC (default: 2m).
	// Ограничено также дедлайном ctx вызывающего.
	SyncTimeout time.Duration
}

// Route53Upserter — Upserter поверх AWS Route 53.
type Route53Upserter struct {
	client route53API
	cfg    Route53Config
}

// NewRoute53Upserter создаёт Upserter из AWS конфигурации.
func NewRoute53Upserter(awsCfg aws.Config, cfg Route53Config) *Route53Upserter {
	return newRoute53Upserter(route53.NewFromConfig(awsCfg), cfg)
}

func newRoute53Upserter(client route53API, cfg Route53Config) *Route53Upserter {
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = defaultSyncInterval
	}
	if cfg.SyncTimeout <= 0 {
		cfg.SyncTimeout = defaultSyncTimeout
	}
	return &Route53Upserter{client: client, cfg: cfg}
}

// UpsertARecord выполняет UPSERT A-записи.
func (u *Route53Upserter) UpsertARecord(ctx context.Context, zoneID, fqdn, ipv4 string, ttl int64) (string, error) {
	out, err := u.client.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID),
		ChangeBatch: &types.ChangeBatch{
			Comment: aws.String("hal-health-check: public ip reconciliation"),
			Changes: []types.Change{
				{
					Action: types.ChangeActionUpsert,
					ResourceRecordSet: &types.ResourceRecordSet{
						Name: aws.String(fqdn),
						Type: types.RRTypeA,
						TTL:  aws.Int64(ttl),
						ResourceRecords: []types.ResourceRecord{
							{Value: aws.String(ipv4)},
						},
					},
				},
			},
		},
	})
	if err != nil {
		return "", wrapAPIError(err)
	}

	if out.ChangeInfo == nil || out.ChangeInfo.Id == nil {
		return "", fmt.Errorf("%w: empty change info", ErrUpsert)
	}
	changeID := aws.ToString(out.ChangeInfo.Id)

	if u.cfg.WaitForSync && out.ChangeInfo.Status != types.ChangeStatusInsync {
		if err := u.waitForSync(ctx, changeID); err != nil {
			return changeID, err
		}
	}

	return changeID, nil
}

// waitForSync опрашивает GetChange до статуса INSYNC.
func (u *Route53Upserter) waitForSync(ctx context.Context, changeID string) error {
	err := wait.PollUntilContextTimeout(ctx, u.cfg.SyncInterval, u.cfg.SyncTimeout, false, func(ctx context.Context) (bool, error) {
		out, err := u.client.GetChange(ctx, &route53.GetChangeInput{Id: aws.String(changeID)})
		if err != nil {
			return false, wrapAPIError(err)
		}
		return out.ChangeInfo != nil && out.ChangeInfo.Status == types.ChangeStatusInsync, nil
	})
	if err != nil {
		return fmt.Errorf("%w: change %s: %v", ErrSyncPending, changeID, err)
	}
	return nil
}

// VerifyCredentials проверяет, что AWS credentials можно получить.
func VerifyCredentials(ctx context.Context, awsCfg aws.Config) error {
	if awsCfg.Credentials == nil {
		return fmt.Errorf("%w: no provider configured", ErrNoCredentials)
	}
	if _, err := awsCfg.Credentials.Retrieve(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrNoCredentials, err)
	}
	return nil
}

func wrapAPIError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s: %s", ErrUpsert, apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return fmt.Errorf("%w: %v", ErrUpsert, err)
}
