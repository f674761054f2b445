package main

import (
	"context"
	"fmt"

	"github.com/Skyrin/go-safar/config"
	glkafka "github.com/Skyrin/go-safar/kafka"
	kafka_aws_ec2 "github.com/Skyrin/go-safar/kafka/aws/ec2"
	"github.com/Skyrin/go-safar/remote"
	"github.com/Skyrin/go-safar/sql"
	"github.com/Skyrin/go-safar/store"
	"github.com/Skyrin/go-safar/telemetry"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// services the opened dependencies of a command. close releases all of them
type services struct {
	localDB  *sql.Connection
	remoteDB *sql.Connection
	kafka    *glkafka.Connection

	local    store.Store
	remote   remote.Service
	reporter telemetry.Reporter

	closers []func() error
}

func (s *services) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Warn().Err(err).Msg("failed to close")
		}
	}
}

// openServices opens the device store, and the remote database and telemetry
// when they are configured
func openServices(ctx context.Context, c *config.Config) (s *services, err error) {
	svc := &services{reporter: telemetry.LogReporter{}}
	defer func() {
		if err != nil {
			svc.close()
		}
	}()

	svc.localDB, err = sql.NewSQLiteConn(ctx, c.LocalStore)
	if err != nil {
		return nil, err
	}
	svc.closers = append(svc.closers, svc.localDB.Close)
	svc.local = store.NewSQL(svc.localDB)

	if c.HasRemote() {
		svc.remoteDB, err = sql.NewPostgresConn(ctx, &c.DB)
		if err != nil {
			return nil, err
		}
		svc.closers = append(svc.closers, svc.remoteDB.Close)
		svc.remote = remote.NewPostgres(svc.remoteDB)
	}

	if c.HasKafka() {
		if err = svc.openKafka(ctx, c); err != nil {
			return nil, err
		}
	}

	return svc, nil
}

func (s *services) openKafka(ctx context.Context, c *config.Config) (err error) {
	connConf := glkafka.ConnectionConfig{
		AddressList: c.KafkaURL,
	}
	if c.Dev {
		connConf.NoTLS = true
	} else if c.KafkaRegion != "" {
		connConf.SASLMechanism, err = kafka_aws_ec2.NewSASLMechanism(ctx,
			kafka_aws_ec2.SASLMechanismConfig{Region: c.KafkaRegion})
		if err != nil {
			return err
		}
	}

	s.kafka, err = glkafka.NewConn(ctx, connConf)
	if err != nil {
		return err
	}
	s.closers = append(s.closers, s.kafka.Close)

	kr, w := telemetry.NewKafkaTopicReporter(s.kafka, c.KafkaTopic)
	s.closers = append(s.closers, w.Close)
	s.reporter = telemetry.Multi{telemetry.LogReporter{}, kr}

	return nil
}

// createTelemetryTopic creates the telemetry topic if kafka is configured
func (s *services) createTelemetryTopic(ctx context.Context, topic string) error {
	if s.kafka == nil {
		return nil
	}

	return s.kafka.CreateTopics(ctx, kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
}

func (s *services) requireRemote() error {
	if s.remote == nil {
		return fmt.Errorf("no remote database configured, set DBHOST and DBNAME")
	}

	return nil
}
