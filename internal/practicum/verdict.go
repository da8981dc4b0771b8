package practicum

import "fmt"

const (
	StatusApproved  = "approved"
	StatusReviewing = "reviewing"
	StatusRejected  = "rejected"
)

var verdicts = map[string]string{
	StatusApproved:  "Работа проверена: ревьюеру всё понравилось. Ура!",
	StatusReviewing: "Работа взята на проверку ревьюером.",
	StatusRejected:  "Работа проверена: у ревьюера есть замечания.",
}

// ParseStatus renders the notification text for a homework record.
// A missing or unknown status yields a KindStatus error.
func ParseStatus(hw Homework) (string, error) {
	if !hw.HasStatus {
		return "", newError(KindStatus, "parse status", ErrMissingStatus)
	}
	verdict, ok := verdicts[hw.Status]
	if !ok {
		return "", newError(KindStatus, "parse status", fmt.Errorf("%w: %q", ErrUnknownStatus, hw.Status))
	}
	return fmt.Sprintf("Изменился статус проверки работы \"%s\". %s", hw.Name, verdict), nil
}
