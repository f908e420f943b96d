package narration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"TinyTales/internal/models"
	apperrors "TinyTales/pkg/errors"
	"TinyTales/pkg/logger"

	"go.uber.org/zap"
)

const MaxPromptLength = 1000

// ErrNoVoice 用户还没有克隆音色
var ErrNoVoice = errors.New("no voice clone for user")

// ContentLanguages 故事可用的语言
var ContentLanguages = map[string]bool{
	"en": true, "es": true, "fr": true, "de": true, "it": true,
	"pt": true, "nl": true, "pl": true, "ru": true, "ja": true,
	"ko": true, "zh": true, "ar": true, "hi": true, "tr": true,
}

type Stage int

const (
	StageValidating Stage = iota
	StageGenerating
	StageSynthesizing
	StageArchiving
	StagePersisting
	StageComplete
)

var stageNames = map[Stage]string{
	StageValidating:   "validation",
	StageGenerating:   "generation",
	StageSynthesizing: "synthesis",
	StageArchiving:    "archiving",
	StagePersisting:   "persistence",
	StageComplete:     "complete",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// StageError tells which stage of a generation run failed
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// ContentCatalog is the user's list of generated stories
type ContentCatalog interface {
	Create(ctx context.Context, item *models.ContentItem) (string, error)
	ListByUser(ctx context.Context, userID string) ([]models.ContentItem, error)
	Delete(ctx context.Context, id, userID string) error
}

// OrphanRecorder keeps track of audio that was stored but never catalogued
type OrphanRecorder interface {
	Record(ctx context.Context, o *models.OrphanedAudio) error
}

// Observer receives per-stage timings
type Observer interface {
	ObserveStage(stage string, elapsed time.Duration, err error)
	ObserveOrphan()
}

type GenerateRequest struct {
	UserID   string
	Prompt   string
	Language string
}

type GenerateResult struct {
	ContentID string `json:"content_id"`
	Title     string `json:"title"`
}

// run carries what earlier stages produced
type run struct {
	req      GenerateRequest
	profile  *models.VoiceProfile
	story    Story
	speech   *Speech
	archived *Archived
	id       string
}

type transition struct {
	exec func(*Orchestrator, context.Context, *run) error
	next Stage
}

var transitions = map[Stage]transition{
	StageValidating:   {(*Orchestrator).validate, StageGenerating},
	StageGenerating:   {(*Orchestrator).generate, StageSynthesizing},
	StageSynthesizing: {(*Orchestrator).synthesize, StageArchiving},
	StageArchiving:    {(*Orchestrator).archive, StagePersisting},
	StagePersisting:   {(*Orchestrator).persist, StageComplete},
}

// Orchestrator 串行执行 校验 → 生成 → 合成 → 归档 → 入库
type Orchestrator struct {
	profiles VoiceProfileStore
	stories  *StoryGenerator
	speech   *SpeechSynthesizer
	archiver *AudioArchiver
	catalog  ContentCatalog
	orphans  OrphanRecorder
	observer Observer
}

type OrchestratorOption func(*Orchestrator)

func WithOrphanRecorder(r OrphanRecorder) OrchestratorOption {
	return func(o *Orchestrator) { o.orphans = r }
}

func WithObserver(obs Observer) OrchestratorOption {
	return func(o *Orchestrator) { o.observer = obs }
}

func NewOrchestrator(profiles VoiceProfileStore, stories *StoryGenerator, speech *SpeechSynthesizer,
	archiver *AudioArchiver, catalog ContentCatalog, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		profiles: profiles,
		stories:  stories,
		speech:   speech,
		archiver: archiver,
		catalog:  catalog,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run 执行一次生成。失败返回 *StageError，不重试
func (o *Orchestrator) Run(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	r := &run{req: req}
	stage := StageValidating
	for stage != StageComplete {
		t, ok := transitions[stage]
		if !ok {
			return nil, &StageError{Stage: stage, Err: fmt.Errorf("no transition from %s", stage)}
		}
		start := time.Now()
		err := t.exec(o, ctx, r)
		if o.observer != nil {
			o.observer.ObserveStage(stage.String(), time.Since(start), err)
		}
		if err != nil {
			o.fail(ctx, stage, r, err)
			return nil, &StageError{Stage: stage, Err: err}
		}
		stage = t.next
	}

	logger.Info("content generated",
		zap.String("user_id", req.UserID),
		zap.String("content_id", r.id),
		zap.Int64("duration", r.speech.DurationSeconds))
	return &GenerateResult{ContentID: r.id, Title: r.story.Title}, nil
}

func (o *Orchestrator) validate(ctx context.Context, r *run) error {
	req := r.req
	if req.UserID == "" {
		return apperrors.WithCode(apperrors.CodeUnauthorized, "missing user")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return apperrors.WithCode(apperrors.CodeValidation, "prompt is required")
	}
	if utf8.RuneCountInString(req.Prompt) > MaxPromptLength {
		return apperrors.WithCodef(apperrors.CodeValidation, "prompt exceeds %d characters", MaxPromptLength)
	}
	if !ContentLanguages[req.Language] {
		return apperrors.WithCodef(apperrors.CodeValidation, "unsupported language %q", req.Language)
	}

	profile, err := o.profiles.GetByUser(ctx, req.UserID)
	if err != nil {
		return ensureCode(err, apperrors.CodePersistence, "lookup voice")
	}
	if profile == nil {
		return apperrors.WrapWithCode(ErrNoVoice, apperrors.CodeValidation, "generate content")
	}
	r.profile = profile
	return nil
}

func (o *Orchestrator) generate(ctx context.Context, r *run) error {
	story, err := o.stories.Generate(ctx, r.req.Prompt, r.req.Language)
	if err != nil {
		return err
	}
	r.story = story
	return nil
}

func (o *Orchestrator) synthesize(ctx context.Context, r *run) error {
	sp, err := o.speech.Synthesize(ctx, r.story.Content, r.profile.ExternalVoiceRef)
	if err != nil {
		return err
	}
	r.speech = sp
	return nil
}

func (o *Orchestrator) archive(ctx context.Context, r *run) error {
	a, err := o.archiver.Archive(ctx, r.speech.Audio)
	if err != nil {
		return err
	}
	r.archived = a
	return nil
}

func (o *Orchestrator) persist(ctx context.Context, r *run) error {
	id, err := o.catalog.Create(ctx, &models.ContentItem{
		UserID:          r.req.UserID,
		VoiceID:         r.profile.ID,
		Title:           r.story.Title,
		Prompt:          r.req.Prompt,
		Language:        r.req.Language,
		AudioURL:        r.archived.URL,
		DurationSeconds: r.speech.DurationSeconds,
	})
	if err != nil {
		return ensureCode(err, apperrors.CodePersistence, "save content")
	}
	r.id = id
	return nil
}

// fail 记录失败。入库失败时归档对象保留，只登记为孤儿
func (o *Orchestrator) fail(ctx context.Context, stage Stage, r *run, err error) {
	fields := []zap.Field{
		zap.String("stage", stage.String()),
		zap.String("user_id", r.req.UserID),
		zap.Error(err),
	}
	if stage == StageValidating {
		logger.Info("generation rejected", fields...)
		return
	}
	logger.Error("generation failed", fields...)

	if stage != StagePersisting || r.archived == nil {
		return
	}
	logger.Warn("archived audio orphaned",
		zap.String("user_id", r.req.UserID),
		zap.String("key", r.archived.Key),
		zap.String("url", r.archived.URL))
	if o.observer != nil {
		o.observer.ObserveOrphan()
	}
	if o.orphans == nil {
		return
	}
	orphan := &models.OrphanedAudio{
		UserID:    r.req.UserID,
		ObjectKey: r.archived.Key,
		AudioURL:  r.archived.URL,
		Reason:    err.Error(),
	}
	// 请求可能已取消，登记不随之失败
	if rerr := o.orphans.Record(context.WithoutCancel(ctx), orphan); rerr != nil {
		logger.Warn("record orphan failed", zap.String("key", r.archived.Key), zap.Error(rerr))
	}
}
