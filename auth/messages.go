package auth

// User-facing messages.
const (
	MsgCredentialsRequired   = "Email and password are required."
	MsgFixForm               = "Please fix the errors in the form before submitting."
	MsgLoginFailed           = "Login failed. Please check your credentials."
	MsgRegistrationFailed    = "Registration failed. Please try again."
	MsgOTPFailed             = "OTP verification failed. Please try again."
	MsgOTPRequestFailed      = "Failed to send verification code. Please try again."
	MsgResendFailed          = "Failed to resend OTP. Please try again."
	MsgResetRequestFailed    = "Failed to request password reset. Please try again."
	MsgResetFailed           = "Failed to reset password. Please try again."
	MsgMissingVerification   = "Missing verification information. Please try again."
	MsgMissingResetInfo      = "Missing information for password reset."
	MsgProfileFailed         = "Failed to fetch profile"
	MsgSessionExpired        = "Your session has expired. Please log in again."
	MsgRefreshFailed         = "Unable to refresh your session. Please log in again."
	MsgOTPSent               = "Please verify your email with the code sent to your inbox."
	MsgOTPResent             = "New OTP has been sent to your email"
	MsgResetCodeSent         = "Password reset code sent to your email"
	MsgVerified              = "Verification successful!"
	MsgRegisteredPleaseLogin = "Registration successful! Please log in."
	MsgPasswordReset         = "Password has been reset successfully!"
	MsgResendWaitFormat      = "Please wait %s before requesting a new code."
)
