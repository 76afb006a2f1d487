package constants

const (
	ServiceName    = "resume-autofill"
	ServiceVersion = "1.0.0"

	// ResumeFormField 上传简历的表单字段名
	ResumeFormField = "resume"
	// AllowedResumeExt 唯一接受的简历扩展名
	AllowedResumeExt = ".pdf"

	// ReportFormField 上传学习报告的表单字段名
	ReportFormField = "reportfile"
	// AllowedReportExt 唯一接受的学习报告扩展名
	AllowedReportExt = ".html"

	// ArchiveObjectPrefix MinIO 中归档简历的对象前缀
	ArchiveObjectPrefix = "resumes"
)
