package conf

import "fmt"

// EnvironmentEnum deployment environment
type EnvironmentEnum string

const (
	LocalEnvironmentEnum      EnvironmentEnum = "loc"
	ProductionEnvironmentEnum EnvironmentEnum = "prod"
	ExampleEnvironmentEnum    EnvironmentEnum = "example"
)

// SystemEnvironmentEnum current environment, set by the --env flag
var SystemEnvironmentEnum = LocalEnvironmentEnum

// ConfigFile explicit config path; overrides the environment-derived one when set
var ConfigFile string

// ParseEnvironment maps a flag value to an environment
func ParseEnvironment(env string) (EnvironmentEnum, error) {
	switch EnvironmentEnum(env) {
	case LocalEnvironmentEnum, ProductionEnvironmentEnum, ExampleEnvironmentEnum:
		return EnvironmentEnum(env), nil
	}
	return "", fmt.Errorf("unknown environment %q (want loc, prod or example)", env)
}

// GetYaml returns the config file path for the current environment
func GetYaml() string {
	if ConfigFile != "" {
		return ConfigFile
	}
	return fmt.Sprintf("./conf/conf_%s.yaml", SystemEnvironmentEnum)
}
