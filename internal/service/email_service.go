package service

import (
	"errors"

	"FailTales/internal/pkg"
	"FailTales/internal/repository/redis"
)

type EmailService struct {
	emailCfg pkg.SMTPConfig
	rds      *redis.EmailRepository
}

func NewEmailService(cfg pkg.SMTPConfig) *EmailService {
	return &EmailService{emailCfg: cfg, rds: &redis.EmailRepository{}}
}

var scopeSubject = map[string]string{
	"register": "注册验证",
	"reset":    "重置密码",
}

// SendCode 发送验证码。两阶段：先写pending，发信成功后转confirmed
func (s *EmailService) SendCode(scope, email string) error {
	subject, ok := scopeSubject[scope]
	if !ok {
		return errors.New("unknown scope")
	}
	code, err := pkg.RandDigits(6)
	if err != nil {
		return err
	}
	if err = s.rds.SetCodePending(scope, email, code); err != nil {
		return err
	}

	html := pkg.EmailCodeHTML(subject, code, redis.DefaultEmailCodeTTL)
	if err = pkg.SendEmail(s.emailCfg, email, subject+"验证码", html); err != nil {
		_ = s.rds.DeleteCodePending(scope, email)
		return err
	}

	return s.rds.ConfirmCode(scope, email)
}

// VerifyCode 校验验证码，验证码只能用一次
func (s *EmailService) VerifyCode(scope, email, code string) (bool, error) {
	stored, err := s.rds.GetCodeConfirmed(scope, email)
	if err != nil {
		return false, err
	}
	if stored != code {
		return false, errors.New("verification code mismatch")
	}
	_ = s.rds.DeleteCodeConfirmed(scope, email)
	return true, nil
}
