package service

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"studymate-be/internal/constant"
	"studymate-be/internal/dto"
	"studymate-be/internal/pkg/logger"
	"studymate-be/pkg/apperr"
	"studymate-be/pkg/speech"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

type IAudioService interface {
	StartSynthesis(ctx context.Context, sid string, voice string) (*dto.StartAudioResponse, error)
	Progress(ctx context.Context, sid string, jobID string) (*dto.AudioProgressResponse, error)
	AudioPath(ctx context.Context, sid string, jobID string) (string, error)
}

type audioService struct {
	studyService IStudyService
	publisher    IPublisherService
	progress     *speech.ProgressRegister
	owners       *cache.Cache
	audioDir     string
	logger       logger.ILogger
}

func NewAudioService(
	studyService IStudyService,
	publisher IPublisherService,
	progress *speech.ProgressRegister,
	audioDir string,
	artifactTTL time.Duration,
	log logger.ILogger,
) IAudioService {
	if artifactTTL <= 0 {
		artifactTTL = time.Hour
	}
	owners := cache.New(artifactTTL, artifactTTL/2)
	// Once a job expires nobody can reach its audio, so the file goes with it
	owners.OnEvicted(func(jobID string, _ interface{}) {
		removeAudioArtifacts(audioDir, jobID, log)
	})

	return &audioService{
		studyService: studyService,
		publisher:    publisher,
		progress:     progress,
		owners:       owners,
		audioDir:     audioDir,
		logger:       log,
	}
}

// AudioFilePath is where a finished job's audio lives. Each job owns its own file.
func AudioFilePath(audioDir, jobID string) string {
	return filepath.Join(audioDir, jobID+".mp3")
}

func (as *audioService) StartSynthesis(ctx context.Context, sid string, voice string) (*dto.StartAudioResponse, error) {
	summary, err := as.studyService.SpokenSummary(ctx, sid)
	if err != nil {
		return nil, err
	}

	jobID := uuid.NewString()
	as.progress.Start(jobID)
	as.owners.Set(jobID, sid, cache.DefaultExpiration)

	err = as.publisher.Publish(ctx, dto.SynthesisJobMessage{
		JobId:     jobID,
		SessionId: sid,
		BookId:    summary.BookId,
		Text:      summary.Content,
		Voice:     voice,
	})
	if err != nil {
		as.progress.Fail(jobID, err)
		as.logger.Error(constant.ModuleAudio, "Failed to publish synthesis job", map[string]interface{}{
			"job_id": jobID,
			"error":  err,
		})
		return nil, apperr.Wrap(apperr.KindInternal, "failed to queue synthesis job", err)
	}

	as.logger.Info(constant.ModuleAudio, "Synthesis job queued", map[string]interface{}{
		"session_id": sid,
		"book_id":    summary.BookId,
		"job_id":     jobID,
		"degraded":   summary.Degraded,
	})

	return &dto.StartAudioResponse{
		JobId:       jobID,
		ProgressUrl: "/api/audio/" + jobID + "/progress",
		AudioUrl:    "/api/audio/" + jobID,
		Degraded:    summary.Degraded,
	}, nil
}

func (as *audioService) Progress(_ context.Context, sid string, jobID string) (*dto.AudioProgressResponse, error) {
	if !as.owns(sid, jobID) {
		return nil, apperr.NotFound("audio job " + jobID + " not found")
	}
	p, ok := as.progress.Get(jobID)
	if !ok {
		return nil, apperr.NotFound("audio job " + jobID + " not found")
	}
	return &dto.AudioProgressResponse{
		JobId:   p.JobID,
		Percent: p.Percent,
		State:   p.State,
		Error:   p.Error,
	}, nil
}

func (as *audioService) AudioPath(_ context.Context, sid string, jobID string) (string, error) {
	if !as.owns(sid, jobID) {
		return "", apperr.NotFound("audio job " + jobID + " not found")
	}
	p, ok := as.progress.Get(jobID)
	if !ok {
		return "", apperr.NotFound("audio job " + jobID + " not found")
	}
	switch p.State {
	case speech.StateDone:
		return AudioFilePath(as.audioDir, jobID), nil
	case speech.StateFailed:
		return "", apperr.New(apperr.KindSynthesisFailed, "audio job failed: "+p.Error)
	default:
		return "", apperr.NotFound("audio job " + jobID + " is not finished yet")
	}
}

func removeAudioArtifacts(audioDir, jobID string, log logger.ILogger) {
	path := AudioFilePath(audioDir, jobID)
	for _, p := range []string{path, path + ".part"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Warn(constant.ModuleAudio, "Failed to remove expired audio", map[string]interface{}{
				"job_id": jobID,
				"path":   p,
				"error":  err,
			})
		}
	}
}

func (as *audioService) owns(sid, jobID string) bool {
	owner, ok := as.owners.Get(jobID)
	return ok && owner.(string) == sid
}
