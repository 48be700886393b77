package models

// WeeklyAlerts is one day of the weekly alert breakdown
type WeeklyAlerts struct {
	Day       string `json:"day"`
	Gunshots  int    `json:"gunshots"`
	Chainsaws int    `json:"chainsaws"`
	Vehicles  int    `json:"vehicles"`
	Total     int    `json:"total"`
}

// MonthlyTrend is one month of the alert/incident series
type MonthlyTrend struct {
	Month     string `json:"month"`
	Alerts    int    `json:"alerts"`
	Incidents int    `json:"incidents"`
}

// AlertTypeShare is a slice of the alert type distribution
type AlertTypeShare struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
	Color string `json:"color"`
}

// AnalyticsSummary holds headline numbers for the analytics page
type AnalyticsSummary struct {
	TotalAlerts    int     `json:"totalAlerts"`
	AvgDailyAlerts float64 `json:"avgDailyAlerts"`
	PeakDay        string  `json:"peakDay"`
	ResponseRate   float64 `json:"responseRate"`
	OnlineDevices  int     `json:"onlineDevices"`
	TotalDevices   int     `json:"totalDevices"`
	NetworkHealth  float64 `json:"networkHealth"`
}

// Analytics is the full analytics payload
type Analytics struct {
	WeeklyAlerts []WeeklyAlerts    `json:"weeklyAlerts"`
	MonthlyTrend []MonthlyTrend    `json:"monthlyTrend"`
	AlertTypes   []AlertTypeShare  `json:"alertTypes"`
	Summary      *AnalyticsSummary `json:"summary"`
}
