package email

const (
	subjectJobReportFmt = "Reporte de servicio: %s"
)
