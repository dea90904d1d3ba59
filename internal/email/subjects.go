package email

const (
	subjectDeadlineReminderFmt = "Напоминание: срок рассмотрения обращения %s истекает"
	subjectDeadlineExpiredFmt  = "Просрочено: обращение %s не рассмотрено в срок"
	subjectStatusChangeFmt     = "Обращение %s: статус изменён"
)
