package model

// BookingType is the window shape of a booking or block.
type BookingType string

const (
	BookingTypeHourly BookingType = "hourly"
	BookingTypeDaily  BookingType = "daily"
)

// Valid reports whether t is a known booking type.
func (t BookingType) Valid() bool {
	return t == BookingTypeHourly || t == BookingTypeDaily
}

// PaymentStatus tracks how much of the booking has been paid.
type PaymentStatus string

const (
	PaymentPending     PaymentStatus = "pending"
	PaymentDepositPaid PaymentStatus = "deposit_paid"
	PaymentFullyPaid   PaymentStatus = "fully_paid"
	PaymentInvoiced    PaymentStatus = "invoiced"
	PaymentFailed      PaymentStatus = "failed"
	PaymentRefunded    PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentDepositPaid, PaymentFullyPaid,
		PaymentInvoiced, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// Confirmed reports whether money has been committed to the booking.
func (s PaymentStatus) Confirmed() bool {
	return s == PaymentDepositPaid || s == PaymentFullyPaid || s == PaymentInvoiced
}

// LifecycleStatus is the operational stage of a booking.
type LifecycleStatus string

const (
	LifecyclePending       LifecycleStatus = "pending"
	LifecyclePreEventReady LifecycleStatus = "pre_event_ready"
	LifecycleInProgress    LifecycleStatus = "in_progress"
	LifecyclePostEvent     LifecycleStatus = "post_event"
	LifecycleClosed        LifecycleStatus = "closed"
	LifecycleCancelled     LifecycleStatus = "cancelled"
)

func (s LifecycleStatus) Valid() bool {
	switch s {
	case LifecyclePending, LifecyclePreEventReady, LifecycleInProgress,
		LifecyclePostEvent, LifecycleClosed, LifecycleCancelled:
		return true
	}
	return false
}

// Finished reports whether no further automation applies.
func (s LifecycleStatus) Finished() bool {
	return s == LifecycleClosed || s == LifecycleCancelled
}

// HostReportStep records the latest host report reminder stage reached.
// The empty value means no stage has been reached yet.
type HostReportStep string

const (
	HostReportNone        HostReportStep = ""
	HostReportPreStart    HostReportStep = "pre_start"
	HostReportDuringEvent HostReportStep = "during_event"
	HostReportPostEvent   HostReportStep = "post_event"
)

// Rank orders steps so they only ever move forward.
func (s HostReportStep) Rank() int {
	switch s {
	case HostReportPreStart:
		return 1
	case HostReportDuringEvent:
		return 2
	case HostReportPostEvent:
		return 3
	}
	return 0
}

// JobFamily groups job types that are planned together.
type JobFamily string

const (
	FamilyBalancePayment JobFamily = "balance_payment"
	FamilyHostReport     JobFamily = "host_report"
	FamilyGuestFeedback  JobFamily = "guest_feedback"
	FamilyLifecycle      JobFamily = "lifecycle"
)

// Families lists every family in planning order.
var Families = []JobFamily{FamilyBalancePayment, FamilyHostReport, FamilyGuestFeedback, FamilyLifecycle}

func (f JobFamily) Valid() bool {
	for _, known := range Families {
		if f == known {
			return true
		}
	}
	return false
}

// JobTypes returns the job types that belong to f.
func (f JobFamily) JobTypes() []JobType {
	var out []JobType
	for _, jt := range allJobTypes {
		if jt.Family() == f {
			out = append(out, jt)
		}
	}
	return out
}

// JobType is the fixed vocabulary of scheduled automation.
type JobType string

const (
	JobBalanceRetry1          JobType = "balance_retry_1"
	JobBalanceRetry2          JobType = "balance_retry_2"
	JobBalanceRetry3          JobType = "balance_retry_3"
	JobHostReportPreStart     JobType = "host_report_pre_start"
	JobHostReportDuring       JobType = "host_report_during"
	JobHostReportPost         JobType = "host_report_post"
	JobGuestFeedbackPostEvent JobType = "guest_feedback_post_event"
	JobSetLifecycleInProgress JobType = "set_lifecycle_in_progress"
)

var allJobTypes = []JobType{
	JobBalanceRetry1, JobBalanceRetry2, JobBalanceRetry3,
	JobHostReportPreStart, JobHostReportDuring, JobHostReportPost,
	JobGuestFeedbackPostEvent, JobSetLifecycleInProgress,
}

func (t JobType) Valid() bool {
	return t.Family() != ""
}

// Family returns the family t belongs to, or "" for unknown types.
func (t JobType) Family() JobFamily {
	switch t {
	case JobBalanceRetry1, JobBalanceRetry2, JobBalanceRetry3:
		return FamilyBalancePayment
	case JobHostReportPreStart, JobHostReportDuring, JobHostReportPost:
		return FamilyHostReport
	case JobGuestFeedbackPostEvent:
		return FamilyGuestFeedback
	case JobSetLifecycleInProgress:
		return FamilyLifecycle
	}
	return ""
}

// JobStatus is the processing state of a scheduled job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// LiveJobStatuses are the statuses that still represent outstanding work.
var LiveJobStatuses = []JobStatus{JobPending, JobFailed}

func (s JobStatus) Valid() bool {
	switch s {
	case JobPending, JobCompleted, JobFailed, JobCancelled:
		return true
	}
	return false
}

// Live reports whether s still represents outstanding work.
func (s JobStatus) Live() bool {
	return s == JobPending || s == JobFailed
}

// CanTransitionTo enforces the job status graph. Completed and cancelled are terminal.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobPending:
		return next == JobCompleted || next == JobFailed || next == JobCancelled
	case JobFailed:
		return next == JobPending || next == JobCompleted || next == JobFailed || next == JobCancelled
	}
	return false
}

// EventType classifies audit records.
type EventType string

const (
	EventBookingCreated       EventType = "booking_created"
	EventConflictDetected     EventType = "conflict_detected"
	EventJobsScheduled        EventType = "jobs_scheduled"
	EventJobsSkipped          EventType = "jobs_skipped"
	EventJobsCancelled        EventType = "jobs_cancelled"
	EventStepAdvanced         EventType = "step_advanced"
	EventBalanceLinkCreated   EventType = "balance_link_created"
	EventPlanInconsistent     EventType = "plan_inconsistent"
	EventPaymentStatusChanged EventType = "payment_status_changed"
	EventLifecycleChanged     EventType = "lifecycle_changed"
	EventHostReportSubmitted  EventType = "host_report_submitted"
	EventBookingCancelled     EventType = "booking_cancelled"
)

// Channel names the subsystem that produced an audit record.
type Channel string

const (
	ChannelPlanner      Channel = "planner"
	ChannelAvailability Channel = "availability"
	ChannelPayment      Channel = "payment"
	ChannelAdmin        Channel = "admin"
	ChannelWebhook      Channel = "webhook"
)
