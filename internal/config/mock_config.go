package config

type Mock struct{}

var _ MockConfig = Mock{}

// GetLatencyScale multiplies the simulated per-call delays. 0 disables them.
func (Mock) GetLatencyScale() float64 {
	return GetEnvFloat("MOCK_LATENCY", 1)
}

// GetFailureRate is the probability that login and submit fail with a 500.
func (Mock) GetFailureRate() float64 {
	return GetEnvFloat("MOCK_FAILURE_RATE", 0.1)
}

func (Mock) GetDemoUserID() string {
	return GetEnv("DEMO_USER_ID", "USR-001")
}

func (Mock) GetDemoUserEmail() string {
	return GetEnv("DEMO_USER_EMAIL", "jane.doe@example.com")
}

func (Mock) GetDemoUserName() string {
	return GetEnv("DEMO_USER_NAME", "Jane Doe")
}

func (Mock) GetDemoUserPassword() string {
	return GetEnv("DEMO_USER_PASSWORD", "password123")
}
