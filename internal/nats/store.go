package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/keepvault/onboard/internal/logger"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// BucketName is the JetStream KeyValue bucket holding wizard records.
const BucketName = "onboard_wizards"

// Per-bucket limits. A record carries the wizard's data bag plus bookkeeping;
// anything over maxRecordBytes is rejected by the server.
const (
	maxRecordBytes = 256 << 10
	maxBucketBytes = 32 << 20
)

// Bucket is the wizard record bucket backed by an embedded server.
type Bucket struct {
	KV jetstream.KeyValue

	nc *nats.Conn
	ns *server.Server
}

// OpenWizardBucket starts an embedded server under dataDir, connects to it
// in-process and creates or updates the wizard bucket. Entries expire after
// ttl, so abandoned sessions are purged even if nobody reopens them.
func OpenWizardBucket(ctx context.Context, dataDir string, ttl time.Duration) (*Bucket, error) {
	ns, err := startServer(dataDir)
	if err != nil {
		return nil, fmt.Errorf("starting embedded nats: %w", err)
	}
	nc, err := nats.Connect("", nats.InProcessServer(ns))
	if err != nil {
		_ = stop(nil, ns)
		return nil, fmt.Errorf("connecting to embedded nats: %w", err)
	}
	b := &Bucket{nc: nc, ns: ns}

	js, err := jetstream.New(nc)
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("creating jetstream context: %w", err)
	}
	b.KV, err = js.CreateOrUpdateKeyValue(ctx, bucketConfig(ttl))
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("setting up bucket %s: %w", BucketName, err)
	}
	logger.Debug("Wizard records stored in JetStream bucket %s (ttl %s)", BucketName, ttl)
	return b, nil
}

func bucketConfig(ttl time.Duration) jetstream.KeyValueConfig {
	return jetstream.KeyValueConfig{
		Bucket:       BucketName,
		Description:  "resumable onboarding wizard sessions",
		History:      1,
		TTL:          ttl,
		MaxValueSize: maxRecordBytes,
		MaxBytes:     maxBucketBytes,
		Storage:      jetstream.FileStorage,
	}
}

// Close drains the connection and stops the embedded server.
func (b *Bucket) Close() error {
	return stop(b.nc, b.ns)
}
