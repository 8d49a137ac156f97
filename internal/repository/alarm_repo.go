package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/sports-newsroom-api/internal/models"
)

// alarmRepo is the concrete implementation of AlarmRepository
type alarmRepo struct {
	blobs *blobStore
	clock *IDClock
}

// newAlarmRepo creates a new alarm repository
func newAlarmRepo(blobs *blobStore, clock *IDClock) AlarmRepository {
	return &alarmRepo{blobs: blobs, clock: clock}
}

func (r *alarmRepo) load(ctx context.Context) ([]models.Alarm, error) {
	var alarms []models.Alarm
	if err := r.blobs.readJSON(ctx, KeyAlarms, &alarms); err != nil {
		return nil, err
	}
	if alarms == nil {
		alarms = []models.Alarm{}
	}
	return alarms, nil
}

func (r *alarmRepo) List(ctx context.Context) ([]models.Alarm, error) {
	return r.load(ctx)
}

// Add prepends a notification
func (r *alarmRepo) Add(ctx context.Context, message string) (*models.Alarm, error) {
	unlock := r.blobs.lock(KeyAlarms)
	defer unlock()

	alarms, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	var maxID int64
	for _, a := range alarms {
		if a.ID > maxID {
			maxID = a.ID
		}
	}

	alarm := models.Alarm{
		ID:      r.clock.Next(maxID),
		Message: message,
		Time:    time.Now().Format(time.RFC3339),
	}
	alarms = append([]models.Alarm{alarm}, alarms...)
	if err := r.blobs.writeJSON(ctx, KeyAlarms, KeyAlarms, alarms); err != nil {
		return nil, err
	}
	return &alarm, nil
}

func (r *alarmRepo) Delete(ctx context.Context, id int64) error {
	unlock := r.blobs.lock(KeyAlarms)
	defer unlock()

	alarms, err := r.load(ctx)
	if err != nil {
		return err
	}
	kept := alarms[:0]
	found := false
	for _, a := range alarms {
		if a.ID == id {
			found = true
			continue
		}
		kept = append(kept, a)
	}
	if !found {
		return ErrNotFound
	}
	return r.blobs.writeJSON(ctx, KeyAlarms, KeyAlarms, kept)
}

// Flags reads the two boolean-as-string indicators; anything but "true" is false
func (r *alarmRepo) Flags(ctx context.Context) (models.AlarmFlags, error) {
	alarm, err := r.blobs.readRaw(ctx, KeyHasNewAlarm)
	if err != nil {
		return models.AlarmFlags{}, err
	}
	dashboard, err := r.blobs.readRaw(ctx, KeyHasNewDashboardAlert)
	if err != nil {
		return models.AlarmFlags{}, err
	}
	return models.AlarmFlags{
		HasNewAlarm:          alarm == "true",
		HasNewDashboardAlert: dashboard == "true",
	}, nil
}

// SetFlags writes whichever flags are non-nil
func (r *alarmRepo) SetFlags(ctx context.Context, hasNewAlarm, hasNewDashboardAlert *bool) error {
	if hasNewAlarm != nil {
		if err := r.blobs.writeRaw(ctx, "flags", KeyHasNewAlarm, strconv.FormatBool(*hasNewAlarm)); err != nil {
			return err
		}
	}
	if hasNewDashboardAlert != nil {
		if err := r.blobs.writeRaw(ctx, "flags", KeyHasNewDashboardAlert, strconv.FormatBool(*hasNewDashboardAlert)); err != nil {
			return err
		}
	}
	return nil
}
