package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sports-newsroom-api/internal/models"
	"github.com/sports-newsroom-api/internal/repository"
	"github.com/sports-newsroom-api/internal/validation"
)

// alarmService is the concrete implementation of AlarmService
type alarmService struct {
	alarms repository.AlarmRepository
	log    zerolog.Logger
}

func newAlarmService(alarms repository.AlarmRepository, log zerolog.Logger) *alarmService {
	return &alarmService{
		alarms: alarms,
		log:    log.With().Str("service", "alarm").Logger(),
	}
}

// Visit lists the notifications and marks them seen on both indicators.
func (s *alarmService) Visit(ctx context.Context) ([]models.Alarm, error) {
	alarms, err := s.alarms.List(ctx)
	if err != nil {
		return nil, err
	}
	off := false
	if err := s.alarms.SetFlags(ctx, &off, &off); err != nil {
		return nil, err
	}
	return alarms, nil
}

func (s *alarmService) Flags(ctx context.Context) (models.AlarmFlags, error) {
	return s.alarms.Flags(ctx)
}

// Create prepends a notification and raises both indicators.
func (s *alarmService) Create(ctx context.Context, message string) (*models.Alarm, error) {
	if strings.TrimSpace(message) == "" {
		return nil, invalid([]validation.ValidationError{{Field: "message", Message: "message is required"}})
	}

	alarm, err := s.alarms.Add(ctx, message)
	if err != nil {
		return nil, err
	}
	on := true
	if err := s.alarms.SetFlags(ctx, &on, &on); err != nil {
		return nil, err
	}

	s.log.Info().Int64("alarm_id", alarm.ID).Msg("Alarm created")
	return alarm, nil
}

func (s *alarmService) Delete(ctx context.Context, id int64) error {
	return s.alarms.Delete(ctx, id)
}
