package main

import (
	"context"
	"fmt"

	"github.com/Diwakar-Gupta/pepper/internal/agent"
	"github.com/Diwakar-Gupta/pepper/internal/agent/frontdoor"
	"github.com/Diwakar-Gupta/pepper/internal/agent/negotiator"
	"github.com/Diwakar-Gupta/pepper/internal/agent/pairing"
	"github.com/Diwakar-Gupta/pepper/internal/agent/rendezvous"
	"github.com/Diwakar-Gupta/pepper/internal/agent/rpc"
	"github.com/Diwakar-Gupta/pepper/internal/agent/session"
	"github.com/Diwakar-Gupta/pepper/internal/common/cache"
	"github.com/Diwakar-Gupta/pepper/internal/common/mq"
	"github.com/Diwakar-Gupta/pepper/internal/common/storage"
	"github.com/Diwakar-Gupta/pepper/internal/judge/problemclient"
	"github.com/Diwakar-Gupta/pepper/internal/judge/repository"
	"github.com/Diwakar-Gupta/pepper/internal/judge/sandbox"
	"github.com/Diwakar-Gupta/pepper/internal/judge/sandbox/engine"
	"github.com/Diwakar-Gupta/pepper/internal/judge/sandbox/observer"
	"github.com/Diwakar-Gupta/pepper/internal/judge/sandbox/runner"
	"github.com/Diwakar-Gupta/pepper/internal/judge/service"
	"github.com/Diwakar-Gupta/pepper/pkg/utils/logger"

	"go.uber.org/zap"
)

// judgeStack is everything behind the RPC dispatcher.
type judgeStack struct {
	dispatcher *rpc.Dispatcher
	store      *repository.BoltStore
	closers    []func() error
}

func (j *judgeStack) Close() {
	for i := len(j.closers) - 1; i >= 0; i-- {
		if err := j.closers[i](); err != nil {
			logger.Warn(context.Background(), "close failed", zap.Error(err))
		}
	}
}

func buildJudgeStack(ctx context.Context, cfg *AppConfig) (*judgeStack, error) {
	stack := &judgeStack{}
	ok := false
	defer func() {
		if !ok {
			stack.Close()
		}
	}()

	eng := engine.NewEngine(engine.Config{OutputMaxBytes: cfg.Sandbox.OutputMaxBytes})
	sandboxSvc, err := sandbox.NewService(sandbox.Config{
		WorkRoot:       cfg.Sandbox.WorkRoot,
		RunTimeout:     cfg.Sandbox.RunTimeout,
		CompileTimeout: cfg.Sandbox.CompileTimeout,
		ProbeTimeout:   cfg.Sandbox.ProbeTimeout,
		Languages:      cfg.Sandbox.Languages,
	}, runner.NewRunnerWithObserver(eng, observer.LogRecorder{}))
	if err != nil {
		return nil, fmt.Errorf("init sandbox failed: %w", err)
	}

	testCaseCache, err := buildCache(cfg.TestCases.Cache)
	if err != nil {
		return nil, err
	}
	stack.closers = append(stack.closers, testCaseCache.Close)

	fetcher, err := buildFetcher(cfg.TestCases)
	if err != nil {
		return nil, err
	}
	testCases, err := problemclient.NewClient(fetcher, testCaseCache, cfg.TestCases.FetchTimeout)
	if err != nil {
		return nil, fmt.Errorf("init test case client failed: %w", err)
	}

	store, err := repository.OpenBoltStore(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open submission store failed: %w", err)
	}
	stack.store = store
	stack.closers = append(stack.closers, store.Close)

	var events service.EventPublisher
	if cfg.Events.Enabled {
		producer, err := mq.NewKafkaProducer(cfg.Events.Kafka.toMQConfig())
		if err != nil {
			return nil, fmt.Errorf("init kafka producer failed: %w", err)
		}
		publisher := repository.NewMQSubmissionEventPublisher(producer, cfg.Events.Kafka.Topic)
		stack.closers = append(stack.closers, publisher.Close)
		events = publisher
		logger.Info(ctx, "submission events enabled", zap.Strings("brokers", cfg.Events.Kafka.Brokers), zap.String("topic", cfg.Events.Kafka.Topic))
	}

	judgeSvc, err := service.NewService(service.Config{
		Executor:  sandboxSvc,
		TestCases: testCases,
		Store:     store,
		Events:    events,
	})
	if err != nil {
		return nil, fmt.Errorf("init judge service failed: %w", err)
	}

	stack.dispatcher, err = rpc.NewDispatcher(judgeSvc, sandboxSvc, store)
	if err != nil {
		return nil, fmt.Errorf("init dispatcher failed: %w", err)
	}
	ok = true
	return stack, nil
}

func buildCache(cfg CacheConfig) (cache.Cache, error) {
	switch cfg.Driver {
	case "redis":
		c, err := cache.NewRedisCacheWithConfig(&cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("init redis cache failed: %w", err)
		}
		return c, nil
	default:
		c, err := cache.NewDiskCache(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("init disk cache failed: %w", err)
		}
		return c, nil
	}
}

func buildFetcher(cfg TestCaseConfig) (problemclient.Fetcher, error) {
	if cfg.Source == "minio" {
		st, err := storage.NewMinIOStorage(cfg.MinIO)
		if err != nil {
			return nil, fmt.Errorf("init minio failed: %w", err)
		}
		return problemclient.NewObjectFetcher(st, cfg.MinIO.Bucket, cfg.MinIO.Prefix)
	}
	return problemclient.NewHTTPFetcher(cfg.BaseURL, cfg.FetchTimeout)
}

func loadSession(cfg *AppConfig) (*session.Session, error) {
	code, err := pairing.NewStore(cfg.Pairing.CodeFile).GetOrCreateCode()
	if err != nil {
		return nil, err
	}
	return session.New(code), nil
}

func buildAgent(cfg *AppConfig, sess *session.Session, stack *judgeStack) (*agent.Agent, error) {
	relay, err := rendezvous.NewClient(rendezvous.Config{
		URL:              cfg.Signaling.URL,
		SessionID:        sess.Code(),
		HandshakeTimeout: cfg.Signaling.HandshakeTimeout,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("init signaling client failed: %w", err)
	}
	retrier := rendezvous.NewRetrier(rendezvous.RetryConfig{
		MaxAttempts: cfg.Signaling.MaxAttempts,
		Base:        cfg.Signaling.BackoffBase,
		Settle:      cfg.Signaling.WakeupSettle,
	}, rendezvous.NewHTTPProber(cfg.Signaling.URL, cfg.Signaling.WakeupTimeout))

	peer, err := negotiator.New(negotiator.Config{
		TaskQueue:            cfg.WebRTC.TaskQueue,
		MaxPendingCandidates: cfg.WebRTC.MaxPendingCandidates,
		FrameBuffer:          cfg.WebRTC.FrameBuffer,
	}, negotiator.NewPionFactory(cfg.WebRTC.ICEServers), relay, sess)
	if err != nil {
		return nil, fmt.Errorf("init negotiator failed: %w", err)
	}
	relay.SetSignalHandler(peer.HandleSignal)

	var extras []agent.Background
	if cfg.FrontDoor.Enabled {
		ctrl := frontdoor.NewController(sess, stack.dispatcher, stack.store)
		extras = append(extras, frontdoor.NewServer(cfg.FrontDoor, sess, ctrl))
	}

	return agent.New(agent.Options{
		Session:    sess,
		Relay:      relay,
		Retrier:    retrier,
		Peer:       peer,
		Dispatcher: stack.dispatcher,
		Extras:     extras,
	})
}
