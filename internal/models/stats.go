package models

import "time"

// DashboardStats is the live overview for one tenant
type DashboardStats struct {
	CallsToday          int            `json:"calls_today"`
	CallsThisMonth      int            `json:"calls_this_month"`
	ActiveCalls         int            `json:"active_calls"`
	AverageCallDuration float64        `json:"average_call_duration_sec"`
	RequestsByStatus    map[string]int `json:"requests_by_status"`
	RequestsByType      map[string]int `json:"requests_by_type"`
	OpenUrgentRequests  int            `json:"open_urgent_requests"`
	GeneratedAt         time.Time      `json:"generated_at"`
}

// DigestStats summarises one tenant's activity over a window (daily digest)
type DigestStats struct {
	TenantID          string `json:"tenant_id"`
	Calls             int    `json:"calls"`
	RequestsCreated   int    `json:"requests_created"`
	RequestsCompleted int    `json:"requests_completed"`
	RequestsOpen      int    `json:"requests_open"`
}

// PlatformStats is the cross-tenant overview for platform admins
type PlatformStats struct {
	TotalTenants     int            `json:"total_tenants"`
	ActiveTenants    int            `json:"active_tenants"`
	TenantsByPlan    map[string]int `json:"tenants_by_plan"`
	TenantsByStatus  map[string]int `json:"tenants_by_status"`
	OpenInvoices     int            `json:"open_invoices"`
	OpenInvoiceCents int64          `json:"open_invoice_cents"`
}
