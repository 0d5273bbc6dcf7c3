package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MarcGrol/sheetmusicshop/services/notification"
	"github.com/MarcGrol/sheetmusicshop/services/paymentadyen"
	"github.com/MarcGrol/sheetmusicshop/services/paymentfake"
	"github.com/MarcGrol/sheetmusicshop/services/paymenttoss"
)

const (
	providerFake   = "fake"
	providerToss   = "toss"
	providerStripe = "stripe"
	providerMollie = "mollie"
	providerAdyen  = "adyen"
)

type Config struct {
	Port            string
	DatabaseURL     string
	AdminEmails     []string
	DemoSeed        bool
	Currency        string
	PaymentTimeout  time.Duration
	PaymentProvider string
	Fake            paymentfake.Config
	Toss            paymenttoss.Config
	StripeAPIKey    string
	MollieAPIKey    string
	MollieTestMode  bool
	Adyen           paymentadyen.Config
	AdyenEnv        string
	SMTP            notification.SMTPConfig
}

func configFromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Port:            valueOr(getenv("PORT"), "8080"),
		DatabaseURL:     getenv("DATABASE_URL"),
		AdminEmails:     splitList(getenv("ADMIN_EMAILS")),
		Currency:        strings.ToUpper(valueOr(getenv("CURRENCY"), "KRW")),
		PaymentProvider: strings.ToLower(valueOr(getenv("PAYMENT_PROVIDER"), providerFake)),
		Fake: paymentfake.Config{
			FailureCode: getenv("FAKE_PAYMENT_FAILURE"),
		},
		Toss: paymenttoss.Config{
			SecretKey: getenv("TOSS_SECRET_KEY"),
			BaseURL:   getenv("TOSS_BASE_URL"),
		},
		StripeAPIKey: getenv("STRIPE_API_KEY"),
		MollieAPIKey: getenv("MOLLIE_API_KEY"),
		Adyen: paymentadyen.Config{
			APIKey:          getenv("ADYEN_API_KEY"),
			MerchantAccount: getenv("ADYEN_MERCHANT_ACCOUNT"),
		},
		AdyenEnv: valueOr(getenv("ADYEN_ENVIRONMENT"), "test"),
		SMTP: notification.SMTPConfig{
			Host:     getenv("SMTP_HOST"),
			User:     getenv("SMTP_USER"),
			Password: getenv("SMTP_PASSWORD"),
			From:     getenv("SMTP_FROM"),
		},
	}

	var err error
	cfg.DemoSeed, err = parseBool("CART_DEMO_SEED", getenv("CART_DEMO_SEED"), false)
	if err != nil {
		return Config{}, err
	}
	cfg.MollieTestMode, err = parseBool("MOLLIE_TEST_MODE", getenv("MOLLIE_TEST_MODE"), true)
	if err != nil {
		return Config{}, err
	}
	cfg.PaymentTimeout, err = parseDuration("PAYMENT_TIMEOUT", getenv("PAYMENT_TIMEOUT"), 10*time.Minute)
	if err != nil {
		return Config{}, err
	}
	cfg.Fake.Delay, err = parseDuration("FAKE_PAYMENT_DELAY", getenv("FAKE_PAYMENT_DELAY"), 0)
	if err != nil {
		return Config{}, err
	}
	cfg.SMTP.Port = 587
	if port := getenv("SMTP_PORT"); port != "" {
		cfg.SMTP.Port, err = strconv.Atoi(port)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SMTP_PORT '%s': %s", port, err)
		}
	}

	err = cfg.validateProvider()
	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (cfg Config) validateProvider() error {
	missing := func(name string) error {
		return fmt.Errorf("payment provider %s needs %s", cfg.PaymentProvider, name)
	}
	switch cfg.PaymentProvider {
	case providerFake:
	case providerToss:
		if cfg.Toss.SecretKey == "" {
			return missing("TOSS_SECRET_KEY")
		}
	case providerStripe:
		if cfg.StripeAPIKey == "" {
			return missing("STRIPE_API_KEY")
		}
	case providerMollie:
		if cfg.MollieAPIKey == "" {
			return missing("MOLLIE_API_KEY")
		}
	case providerAdyen:
		if cfg.Adyen.APIKey == "" || cfg.Adyen.MerchantAccount == "" {
			return missing("ADYEN_API_KEY and ADYEN_MERCHANT_ACCOUNT")
		}
	default:
		return fmt.Errorf("unknown PAYMENT_PROVIDER '%s'", cfg.PaymentProvider)
	}
	return nil
}

func valueOr(value string, dflt string) string {
	if value == "" {
		return dflt
	}
	return value
}

func splitList(value string) []string {
	list := []string{}
	for _, v := range strings.Split(value, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			list = append(list, v)
		}
	}
	return list
}

func parseBool(name string, value string, dflt bool) (bool, error) {
	if value == "" {
		return dflt, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s '%s': %s", name, value, err)
	}
	return b, nil
}

func parseDuration(name string, value string, dflt time.Duration) (time.Duration, error) {
	if value == "" {
		return dflt, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s '%s': %s", name, value, err)
	}
	return d, nil
}
