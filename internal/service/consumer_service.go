package service

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"studymate-be/internal/constant"
	"studymate-be/internal/dto"
	"studymate-be/internal/pkg/logger"
	"studymate-be/internal/pkg/monitoring"
	"studymate-be/pkg/apperr"
	"studymate-be/pkg/speech"
	"studymate-be/pkg/utils"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	synth      speech.Provider
	progress   *speech.ProgressRegister
	audioDir   string
	maxChars   int
	jobTimeout time.Duration
	workers    chan struct{}
	logger     logger.ILogger
	metrics    *monitoring.Metrics
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	synth speech.Provider,
	progress *speech.ProgressRegister,
	audioDir string,
	maxChars int,
	jobTimeout time.Duration,
	log logger.ILogger,
	metrics *monitoring.Metrics,
) IConsumerService {
	if jobTimeout <= 0 {
		jobTimeout = 5 * time.Minute
	}
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		synth:      synth,
		progress:   progress,
		audioDir:   audioDir,
		maxChars:   maxChars,
		jobTimeout: jobTimeout,
		workers:    make(chan struct{}, 4),
		logger:     log,
		metrics:    metrics,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	if err := os.MkdirAll(cs.audioDir, 0755); err != nil {
		return err
	}

	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.SynthesisJobMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error(constant.ModuleAudio, "Failed to unmarshal synthesis job", map[string]interface{}{"error": err})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	// Failures surface through the progress register, so the job is never redelivered
	msg.Ack()

	cs.workers <- struct{}{}
	go func() {
		defer func() { <-cs.workers }()
		cs.synthesize(ctx, payload)
	}()
}

// synthesize streams audio into a temporary file and moves it into place once complete,
// so a download never observes a half-written artifact.
func (cs *consumerService) synthesize(ctx context.Context, job dto.SynthesisJobMessage) {
	jobCtx, cancel := context.WithTimeout(ctx, cs.jobTimeout)
	defer cancel()

	finalPath := AudioFilePath(cs.audioDir, job.JobId)
	partPath := finalPath + ".part"

	fail := func(err error) {
		_ = os.Remove(partPath)
		cs.progress.Fail(job.JobId, err)
		cs.metrics.RecordSynthesis(monitoring.OutcomeFailed)
		cs.logger.Error(constant.ModuleAudio, "Synthesis job failed", map[string]interface{}{
			"job_id": job.JobId,
			"kind":   string(apperr.KindOf(err)),
			"error":  err,
		})
	}

	segments := utils.SplitText(job.Text, cs.maxChars)
	if len(segments) == 0 {
		fail(apperr.New(apperr.KindSynthesisFailed, "nothing to synthesize"))
		return
	}

	f, err := os.Create(partPath)
	if err != nil {
		fail(apperr.Wrap(apperr.KindInternal, "failed to create audio file", err))
		return
	}

	// Long texts go out as several requests; MP3 frames from consecutive responses concatenate
	chunks := 0
	for _, segment := range segments {
		err = cs.synth.Synthesize(jobCtx, segment, job.Voice, func(chunk []byte) error {
			if _, werr := f.Write(chunk); werr != nil {
				return apperr.Wrap(apperr.KindInternal, "failed to write audio chunk", werr)
			}
			chunks++
			cs.progress.ChunkWritten(job.JobId, chunks)
			return nil
		})
		if err != nil {
			break
		}
	}
	closeErr := f.Close()

	if err != nil {
		fail(err)
		return
	}
	if closeErr != nil {
		fail(apperr.Wrap(apperr.KindInternal, "failed to close audio file", closeErr))
		return
	}
	if err := os.Rename(partPath, finalPath); err != nil {
		fail(apperr.Wrap(apperr.KindInternal, "failed to finalize audio file", err))
		return
	}

	cs.progress.Done(job.JobId)
	cs.metrics.RecordSynthesis(monitoring.OutcomeOK)
	cs.logger.Info(constant.ModuleAudio, "Synthesis job finished", map[string]interface{}{
		"job_id": job.JobId,
		"chunks": chunks,
	})
}
