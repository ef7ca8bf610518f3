package auth

import "github.com/pquerna/otp/totp"

// EnrollTOTP generates a fresh shared secret and the otpauth
// provisioning URI used for QR-code enrollment.
func EnrollTOTP(issuer, account string) (secret, uri string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// ValidateTOTP checks a code against the shared secret using the
// standard 30-second window.
func ValidateTOTP(secret, code string) bool {
	return totp.Validate(code, secret)
}
