package whatsapp

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/meditrack/internal/domain/models"
	client "github.com/mamadbah2/meditrack/pkg/clients/whatsapp"
)

const sendTimeout = 10 * time.Second

// Notifier tells farmers about events on their animals.
type Notifier interface {
	NotifyWithdrawal(ctx context.Context, farmer models.User, animal models.Animal, until time.Time)
}

// Service is the WhatsApp Cloud API backed Notifier.
type Service struct {
	client client.Client
	loc    *time.Location
	logger *zap.Logger
}

// NewService wires a new service instance. A nil client turns every
// notification into a debug log line.
func NewService(c client.Client, loc *time.Location, logger *zap.Logger) *Service {
	svc := &Service{
		client: c,
		loc:    loc,
		logger: logger,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.loc == nil {
		svc.loc = time.UTC
	}
	return svc
}

// WithdrawalMessage renders the text sent when a prescription starts an MRL
// withdrawal period.
func WithdrawalMessage(farmer models.User, animal models.Animal, until time.Time, loc *time.Location) string {
	return fmt.Sprintf(
		"Hello %s, animal %s has been treated. Withdrawal period ends on %s. Do not sell milk, meat or eggs from it before that date.",
		farmer.Name, animal.AnimalTagID, until.In(loc).Format("02 Jan 2006"),
	)
}

// NotifyWithdrawal is best effort: delivery failures are logged and dropped.
func (s *Service) NotifyWithdrawal(ctx context.Context, farmer models.User, animal models.Animal, until time.Time) {
	if s.client == nil {
		s.logger.Debug("whatsapp disabled, skipping withdrawal notice",
			zap.String("animal_tag_id", animal.AnimalTagID))
		return
	}
	if farmer.Phone == "" {
		s.logger.Warn("farmer has no phone, skipping withdrawal notice",
			zap.String("farmer_id", farmer.ID.Hex()))
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()

	messageID, err := s.client.SendText(ctxWithTimeout, farmer.Phone, WithdrawalMessage(farmer, animal, until, s.loc))
	if err != nil {
		s.logger.Warn("failed to send withdrawal notice",
			zap.String("farmer_id", farmer.ID.Hex()),
			zap.String("animal_tag_id", animal.AnimalTagID),
			zap.Error(err))
		return
	}

	s.logger.Info("withdrawal notice sent",
		zap.String("farmer_id", farmer.ID.Hex()),
		zap.String("message_id", messageID))
}
