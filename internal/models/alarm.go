package models

// Alarm is a notification in alarm_list.
type Alarm struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
	Time    string `json:"time"`
}

// AlarmFlags are the two "something new" indicators.
type AlarmFlags struct {
	HasNewAlarm          bool `json:"hasNewAlarm"`
	HasNewDashboardAlert bool `json:"hasNewDashboardAlert"`
}
