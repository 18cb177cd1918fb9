package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/threadcast/threadcast/internal/ai"
	"github.com/threadcast/threadcast/internal/domain"
	"github.com/threadcast/threadcast/internal/repository"
)

// DraftService creates drafted posts, either from user text or from the
// text-generation collaborator.
type DraftService struct {
	posts     repository.PostRepository
	generator ai.Generator
	node      *snowflake.Node
	logger    *zap.Logger
}

// NewDraftService wires the draft service. generator may be nil when the AI
// feature is not configured; GenerateDraft then fails with a clear error.
func NewDraftService(posts repository.PostRepository, generator ai.Generator, node *snowflake.Node, logger *zap.Logger) *DraftService {
	return &DraftService{posts: posts, generator: generator, node: node, logger: logger}
}

// CreateDraft stores a user-written draft after validating length limits.
func (s *DraftService) CreateDraft(ctx context.Context, userID int64, content, imageURL string) (domain.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.Post{}, ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > domain.MaxPostLength {
		return domain.Post{}, ErrContentTooLong
	}

	post := domain.Post{
		ID:       s.node.Generate().Int64(),
		UserID:   userID,
		Content:  content,
		ImageURL: strings.TrimSpace(imageURL),
		Status:   domain.PostStatusDraft,
	}
	created, err := s.posts.Create(ctx, post)
	if err != nil {
		return domain.Post{}, fmt.Errorf("create draft: %w", err)
	}
	return created, nil
}

// GenerateDraft asks the generator for post text on a topic and stores the
// result as a draft. Overlong generations are trimmed to the platform limit.
func (s *DraftService) GenerateDraft(ctx context.Context, userID int64, topic string) (domain.Post, error) {
	if s.generator == nil {
		return domain.Post{}, fmt.Errorf("draft generation is not configured")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return domain.Post{}, ErrEmptyContent
	}

	prompt := fmt.Sprintf(
		"Write a single social media post about: %s\n\nKeep it under %d characters. Reply with the post text only.",
		topic, domain.MaxPostLength,
	)
	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return domain.Post{}, fmt.Errorf("generate draft: %w", err)
	}

	if utf8.RuneCountInString(text) > domain.MaxPostLength {
		runes := []rune(text)
		text = string(runes[:domain.MaxPostLength])
		s.logger.Warn("generated draft trimmed to platform limit", zap.Int64("user_id", userID))
	}

	return s.CreateDraft(ctx, userID, text, "")
}
