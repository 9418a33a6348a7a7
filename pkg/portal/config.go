package portal

import (
	"strings"
	"time"

	"github.com/gookit/validate"
	"github.com/spf13/viper"
)

// Config is the flat key→value surface consumed by every component. It is
// constructed once at startup and passed by reference; nothing mutates it
// afterwards.
//
// Units mirror the keys exactly: fields named *Ms hold milliseconds and
// fields named *Seconds hold seconds, matching the unit each key has
// always used. Use the duration accessors when a time.Duration is needed.
type Config struct {
	// Portal credentials. Absence of any of these is fatal at startup.
	PortalURL string `mapstructure:"portal_url" validate:"required"`
	Username  string `mapstructure:"username" validate:"required"`
	Password  string `mapstructure:"password" validate:"required"`

	// Mailbox access. EmailPass is an app-level credential, never the
	// primary account password.
	EmailUser   string `mapstructure:"email_user" validate:"required"`
	EmailPass   string `mapstructure:"email_pass" validate:"required"`
	EmailServer string `mapstructure:"email_server" validate:"required"`

	// Browser flags.
	BrowserHeadless        bool `mapstructure:"browser_headless"`
	BrowserIgnoreTLSErrors bool `mapstructure:"browser_ignore_https_errors"`

	// OTP login timings. All *Ms keys are milliseconds; OTPDelaySeconds
	// is seconds between delivery retries.
	OTPRetries               int    `mapstructure:"otp_retries" validate:"min:1"`
	OTPDelaySeconds          int    `mapstructure:"otp_delay" validate:"min:0"`
	OTPCredentialEntryWaitMs int    `mapstructure:"otp_credential_entry_wait"`
	OTPButtonTimeoutMs       int    `mapstructure:"otp_button_timeout"`
	OTPEmailWaitTimeMs       int    `mapstructure:"otp_email_wait_time"`
	OTPInputDelayMs          int    `mapstructure:"otp_input_delay"`
	OTPVerifyButtonTimeoutMs int    `mapstructure:"otp_verify_button_timeout"`
	OTPLoginCompleteWaitMs   int    `mapstructure:"otp_login_complete_wait"`
	ManualOTP                string `mapstructure:"manual_otp"`

	// Workflow timings, in seconds.
	WaitTimeoutSeconds    int `mapstructure:"wait_timeout"`
	UploadWaitTimeSeconds int `mapstructure:"upload_wait_time"`
	StepGapSeconds        int `mapstructure:"step_gap_seconds"`
	ClipExportWaitSeconds int `mapstructure:"clip_export_wait"`

	// Upload workflow inputs.
	CircleName   string `mapstructure:"circle_name"`
	ZipFile      string `mapstructure:"zip_file"`
	PostTitle    string `mapstructure:"post_title"`
	ContentTitle string `mapstructure:"content_title"`
	Description  string `mapstructure:"description"`
	Keywords     string `mapstructure:"keywords"`

	// Sequence validation inputs.
	FileURL1    string `mapstructure:"file_url_1"`
	FileURL2    string `mapstructure:"file_url_2"`
	FileURL3    string `mapstructure:"file_url_3"`
	S3BucketURL string `mapstructure:"s3_bucket_url"`

	// Live flow.
	DaysBack int `mapstructure:"days_back" validate:"min:1"`

	// Logging.
	LogLevel string `mapstructure:"log_level"`
	LogDir   string `mapstructure:"log_dir"`
}

// requiredKeys have no usable default; they must come from the
// environment or the config file.
var requiredKeys = []string{
	"portal_url", "username", "password",
	"email_user", "email_pass", "email_server",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("browser_headless", false)
	v.SetDefault("browser_ignore_https_errors", true)

	v.SetDefault("otp_retries", 15)
	v.SetDefault("otp_delay", 5)
	v.SetDefault("otp_credential_entry_wait", 4000)
	v.SetDefault("otp_button_timeout", 30000)
	v.SetDefault("otp_email_wait_time", 10000)
	v.SetDefault("otp_input_delay", 200)
	v.SetDefault("otp_verify_button_timeout", 8000)
	v.SetDefault("otp_login_complete_wait", 3000)
	v.SetDefault("manual_otp", "")

	v.SetDefault("wait_timeout", 20)
	v.SetDefault("upload_wait_time", 20)
	v.SetDefault("step_gap_seconds", 2)
	v.SetDefault("clip_export_wait", 20)

	v.SetDefault("circle_name", "")
	v.SetDefault("zip_file", "")
	v.SetDefault("post_title", "")
	v.SetDefault("content_title", "")
	v.SetDefault("description", "")
	v.SetDefault("keywords", "")

	v.SetDefault("file_url_1", "")
	v.SetDefault("file_url_2", "")
	v.SetDefault("file_url_3", "")
	v.SetDefault("s3_bucket_url", "")

	v.SetDefault("days_back", 1)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_dir", "logs")
}

// Load reads configuration from the environment and, when path is
// non-empty, from an env-format file. A missing required key or a value
// that fails validation is fatal.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	for _, key := range requiredKeys {
		// BindEnv maps each key to its uppercased environment name.
		_ = v.BindEnv(key)
	}
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, &FatalError{Reason: "cannot read config file " + path, Err: err}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, &FatalError{Reason: "cannot decode configuration", Err: err}
	}

	vd := validate.Struct(&c)
	if !vd.Validate() {
		return nil, Fatalf("invalid configuration: %s", vd.Errors.One())
	}
	return &c, nil
}

func msDur(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }
func secDur(s int) time.Duration { return time.Duration(s) * time.Second }

// OTPDelay is the pause between OTP delivery attempts.
func (c *Config) OTPDelay() time.Duration { return secDur(c.OTPDelaySeconds) }

// OTPCredentialEntryWait is the settle time after submitting credentials.
func (c *Config) OTPCredentialEntryWait() time.Duration { return msDur(c.OTPCredentialEntryWaitMs) }

// OTPButtonTimeout bounds the wait for the send-code control.
func (c *Config) OTPButtonTimeout() time.Duration { return msDur(c.OTPButtonTimeoutMs) }

// OTPEmailWait bounds a single mailbox polling window.
func (c *Config) OTPEmailWait() time.Duration { return msDur(c.OTPEmailWaitTimeMs) }

// OTPInputDelay is the inter-character delay when typing the code.
func (c *Config) OTPInputDelay() time.Duration { return msDur(c.OTPInputDelayMs) }

// OTPVerifyButtonTimeout bounds the wait for the verify control.
func (c *Config) OTPVerifyButtonTimeout() time.Duration { return msDur(c.OTPVerifyButtonTimeoutMs) }

// OTPLoginCompleteWait bounds the wait for the login-complete signal.
func (c *Config) OTPLoginCompleteWait() time.Duration { return msDur(c.OTPLoginCompleteWaitMs) }

// WaitTimeout is the general element-visibility timeout.
func (c *Config) WaitTimeout() time.Duration { return secDur(c.WaitTimeoutSeconds) }

// UploadWaitTime bounds the wait for an upload to finish.
func (c *Config) UploadWaitTime() time.Duration { return secDur(c.UploadWaitTimeSeconds) }

// StepGap is the settle pause between workflow steps.
func (c *Config) StepGap() time.Duration { return secDur(c.StepGapSeconds) }

// ClipExportWait is the settle time after triggering a clip export.
func (c *Config) ClipExportWait() time.Duration { return secDur(c.ClipExportWaitSeconds) }

// SequenceFiles returns the configured ordered file list for sequence
// validation, skipping unset slots.
func (c *Config) SequenceFiles() []string {
	var files []string
	for _, f := range []string{c.FileURL1, c.FileURL2, c.FileURL3} {
		if strings.TrimSpace(f) != "" {
			files = append(files, f)
		}
	}
	return files
}
