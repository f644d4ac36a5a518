package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"gopkg.in/yaml.v3"

	"finassist/internal/finance"
	"finassist/internal/llm"
)

const DefaultUserID = "test_user"

// Functions names the deployed Lambda functions.
type Functions struct {
	Matcher       string `yaml:"matcher"`
	Subscriptions string `yaml:"subscriptions"`
	Products      string `yaml:"products"`
	Goals         string `yaml:"goals"`
	Summarize     string `yaml:"summarize"`
}

// Domains maps each domain to its function.
func (f Functions) Domains() map[string]string {
	return map[string]string{
		finance.DomainSubscriptions: f.Subscriptions,
		finance.DomainProducts:      f.Products,
		finance.DomainGoals:         f.Goals,
	}
}

type Config struct {
	UserID            string    `yaml:"user_id"`
	Region            string    `yaml:"region"`
	ModelID           string    `yaml:"model_id"`
	ModelIDParam      string    `yaml:"model_id_param"`
	Local             bool      `yaml:"local"`
	LogLevel          string    `yaml:"log_level"`
	CatalogTTLSeconds int       `yaml:"catalog_ttl_seconds"`
	Functions         Functions `yaml:"functions"`
}

// Load reads ./.finassist/config.yaml, then ~/.finassist/config.yaml, applies
// environment overrides and fills defaults. It returns the file used, if any.
func Load() (Config, string, error) {
	var try []string
	if cwd, err := os.Getwd(); err == nil {
		try = append(try, filepath.Join(cwd, ".finassist", "config.yaml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		try = append(try, filepath.Join(home, ".finassist", "config.yaml"))
	}
	return LoadFrom(try...)
}

// LoadFrom uses the first existing path.
func LoadFrom(paths ...string) (Config, string, error) {
	var cfg Config
	used := ""
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Config{}, "", err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, "", fmt.Errorf("%s: %w", p, err)
		}
		used = p
		break
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, used, nil
}

func (c *Config) applyEnv() {
	setString(&c.UserID, "FINASSIST_USER_ID")
	setString(&c.Region, "AWS_REGION")
	setString(&c.ModelID, "BEDROCK_MODEL_ID")
	setString(&c.ModelIDParam, "BEDROCK_MODEL_ID_PARAM")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.Functions.Matcher, "FUNCTION_MATCHER_FUNCTION")
	setString(&c.Functions.Subscriptions, "SUBSCRIPTIONS_FUNCTION")
	setString(&c.Functions.Products, "PRODUCTS_FUNCTION")
	setString(&c.Functions.Goals, "GOALS_FUNCTION")
	setString(&c.Functions.Summarize, "SUMMARIZE_FUNCTION")

	if v := strings.TrimSpace(os.Getenv("CATALOG_CACHE_TTL_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.CatalogTTLSeconds = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("FINASSIST_LOCAL")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Local = b
		}
	}
}

func (c *Config) applyDefaults() {
	def := func(p *string, v string) {
		if strings.TrimSpace(*p) == "" {
			*p = v
		}
	}
	def(&c.UserID, DefaultUserID)
	def(&c.LogLevel, "info")
	def(&c.Functions.Matcher, "function-matcher")
	def(&c.Functions.Subscriptions, "subscriptions")
	def(&c.Functions.Products, "products")
	def(&c.Functions.Goals, "goals")
	def(&c.Functions.Summarize, "summarize")
}

func setString(dst *string, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*dst = v
	}
}

// CatalogTTL is how long a catalog snapshot is reused. Zero means the cache default.
func (c Config) CatalogTTL() time.Duration {
	return time.Duration(c.CatalogTTLSeconds) * time.Second
}

// AWS loads the shared AWS config, pinned to Region when set.
func (c Config) AWS(ctx context.Context) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if c.Region != "" {
		opts = append(opts, awsconfig.WithRegion(c.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

type SSMClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// ResolveModelID prefers an explicit model id, then the Parameter Store value, then the default.
func (c Config) ResolveModelID(ctx context.Context, client SSMClient) (string, error) {
	if id := strings.TrimSpace(c.ModelID); id != "" {
		return id, nil
	}
	name := strings.TrimSpace(c.ModelIDParam)
	if name == "" || client == nil {
		return llm.DefaultModelID, nil
	}

	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("ssm GetParameter %s: %w", name, err)
	}
	if out.Parameter == nil || strings.TrimSpace(aws.ToString(out.Parameter.Value)) == "" {
		return "", fmt.Errorf("ssm parameter %s is empty", name)
	}
	return strings.TrimSpace(aws.ToString(out.Parameter.Value)), nil
}

// ModelSource describes where the model id comes from without calling AWS.
func (c Config) ModelSource() string {
	if id := strings.TrimSpace(c.ModelID); id != "" {
		return id
	}
	if name := strings.TrimSpace(c.ModelIDParam); name != "" {
		return "ssm:" + name
	}
	return llm.DefaultModelID
}
