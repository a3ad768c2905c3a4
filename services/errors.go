package services

// ServiceError represents a typed error with an HTTP status code. Reason
// carries a machine-readable code when one exists (coupon rejections,
// fraud outcomes).
type ServiceError struct {
	StatusCode int
	Message    string
	Reason     string
}

func (e *ServiceError) Error() string {
	return e.Message
}
