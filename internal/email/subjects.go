package email

const (
	subjectAppointmentCancelledFmt = "Your repair appointment on %s was cancelled"
	subjectTechnicianUnassigned    = "You have been unassigned from a repair job"
	subjectTechnicianAssignedFmt   = "New repair job on %s"
	subjectTechnicianChanged       = "Your repair technician has changed"
)
