package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"playmind-backend/internal/repository"
)

const (
	playReminderInactivity  = 72 * time.Hour
	playReminderInterval    = 7 * 24 * time.Hour
	reminderPollInterval    = 1 * time.Hour
	playReminderLastSentTTL = playReminderInterval
	playReminderLastSentPfx = "play_reminder_sent:"
)

// ReminderScheduler sweeps for guardians whose children have gone quiet and
// nudges them by email. A Redis last-sent key throttles repeats per guardian.
type ReminderScheduler struct {
	userRepo *repository.UserRepo
	email    *EmailService
	redis    *redis.Client
	stopChan chan struct{}
}

func NewReminderScheduler(userRepo *repository.UserRepo, email *EmailService, redisClient *redis.Client) *ReminderScheduler {
	return &ReminderScheduler{
		userRepo: userRepo,
		email:    email,
		redis:    redisClient,
		stopChan: make(chan struct{}),
	}
}

func (s *ReminderScheduler) Start() {
	if s.userRepo == nil || s.email == nil {
		return
	}

	go s.loop()

	log.Printf("Play reminder scheduler started")
}

func (s *ReminderScheduler) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *ReminderScheduler) loop() {
	// Run on startup as well as by interval.
	s.sendPlayReminders(context.Background(), time.Now().UTC())

	ticker := time.NewTicker(reminderPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sendPlayReminders(context.Background(), time.Now().UTC())
		}
	}
}

func (s *ReminderScheduler) sendPlayReminders(ctx context.Context, now time.Time) {
	cutoff := now.Add(-playReminderInactivity)

	recipients, err := s.userRepo.ListInactiveSince(ctx, cutoff)
	if err != nil {
		log.Printf("play reminders: failed to list recipients: %v", err)
		return
	}

	for _, recipient := range recipients {
		lastSentKey := fmt.Sprintf("%s%s", playReminderLastSentPfx, recipient.ID)
		set, err := s.redis.SetNX(ctx, lastSentKey, now.Format(time.RFC3339), playReminderLastSentTTL).Result()
		if err != nil {
			log.Printf("play reminders: failed to reserve send for user %s: %v", recipient.ID, err)
			continue
		}
		if !set {
			continue // Sent within the throttle window
		}

		if err := s.email.SendPlayReminderEmail(recipient.Email, recipient.FullName); err != nil {
			log.Printf("play reminders: failed to send to %s: %v", recipient.Email, err)
			s.redis.Del(ctx, lastSentKey)
		}
	}
}
