package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/svrddd/tgbotNEW/internal/notify"
	"github.com/svrddd/tgbotNEW/internal/session"
)

// handleText routes free-form text by the current state: feedback text and
// contact messages are the only places the workflow accepts it.
func (e *Engine) handleText(ctx context.Context, sess *session.Session, evt Event) (*Reply, error) {
	switch sess.State {
	case session.StateFeedbackText:
		sess.Scratch.FeedbackText = evt.Text
		sess.State = session.StateFeedbackRating
		return &Reply{
			Text:     "Спасибо за отзыв! Теперь оцените нас от 1 до 5:",
			Keyboard: ratingKeyboard(),
		}, nil

	case session.StateContactMessage:
		go e.notifier.ContactMessage(context.Background(), notify.ContactSummary{
			UserID: sess.UserID,
			Text:   evt.Text,
		})
		sess.State = session.StateIdle
		return &Reply{
			Text:     "Ваше сообщение отправлено администратору. Мы свяжемся с вами в ближайшее время!",
			Keyboard: mainMenuKeyboard(),
		}, nil
	}

	return nil, rejected(evt, sess)
}

func (e *Engine) handleSelectRating(ctx context.Context, sess *session.Session, evt Event) (*Reply, error) {
	if sess.State != session.StateFeedbackRating {
		return nil, rejected(evt, sess)
	}

	review, err := e.reviews.Add(ctx, sess.UserID, sess.Scratch.FeedbackText, evt.Rating)
	if err != nil {
		return nil, fmt.Errorf("save review: %w", err)
	}

	go e.notifier.ReviewReceived(context.Background(), notify.ReviewSummary{
		UserID: review.UserID,
		Text:   review.Text,
		Rating: review.Rating,
	})
	e.logger.Info("review saved",
		zap.Int64("user_id", sess.UserID), zap.Int("rating", evt.Rating))

	sess.Scratch = session.Scratch{}
	sess.State = session.StateIdle
	return &Reply{
		Text:     "Спасибо за вашу оценку! Мы ценим ваше мнение. ❤️",
		Keyboard: mainMenuKeyboard(),
	}, nil
}
