package slang

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is a typed settings bag threaded through the compiler, VM
// and module loader. Its shape — a string-keyed map of typed values
// with Set{Bool,Int,String}/Get{Bool,Int,String} accessors — is
// carried verbatim from the teacher repo's own config.go.
type Config map[string]*cfgVal

// NewConfig creates a configuration primed with every default the
// compiler, VM and GC read. compiler.fold_pure, gc.grow_factor and the
// gc.shrink_threshold_* pair are stored but not read: the collector's
// growth factor and shrink threshold are fixed in gc.go.
func NewConfig() *Config {
	m := make(Config)
	m.SetInt("compiler.optimize", 1)
	m.SetBool("compiler.fold_pure", true)
	m.SetBool("vm.check_arity", true)
	m.SetInt("gc.small_set_bytes", 1<<16)
	m.SetString("gc.grow_factor", "1.5")
	m.SetInt("gc.shrink_threshold_num", 7)
	m.SetInt("gc.shrink_threshold_den", 8)
	m.SetString("module.search_paths", ".")
	return &m
}

type cfgValType int

const (
	cfgValType_Undefined cfgValType = iota
	cfgValType_Bool
	cfgValType_Int
	cfgValType_String
)

func (vt cfgValType) String() string {
	return map[cfgValType]string{
		cfgValType_Undefined: "undefined",
		cfgValType_Bool:      "bool",
		cfgValType_Int:       "int",
		cfgValType_String:    "string",
	}[vt]
}

type cfgVal struct {
	typ      cfgValType
	asBool   bool
	asInt    int
	asString string
}

func (v *cfgVal) assignType(vt cfgValType) {
	if v.typ != vt && v.typ != cfgValType_Undefined {
		panic(fmt.Sprintf("can't assign `%s` to type `%s`", vt, v.typ))
	}
	v.typ = vt
}

func (v *cfgVal) checkType(vt cfgValType) {
	if v.typ != vt {
		panic(fmt.Sprintf("can't retrieve `%s` from `%s` variable", vt, v.typ))
	}
}

func (c *Config) SetBool(path string, v bool) {
	(*c)[path] = &cfgVal{}
	(*c)[path].assignType(cfgValType_Bool)
	(*c)[path].asBool = v
}

func (c *Config) SetInt(path string, v int) {
	(*c)[path] = &cfgVal{}
	(*c)[path].assignType(cfgValType_Int)
	(*c)[path].asInt = v
}

func (c *Config) SetString(path string, v string) {
	(*c)[path] = &cfgVal{}
	(*c)[path].assignType(cfgValType_String)
	(*c)[path].asString = v
}

func (c *Config) GetBool(path string) bool {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValType_Bool)
		return val.asBool
	}
	panic(fmt.Sprintf("bool setting `%s` does not exist", path))
}

func (c *Config) GetInt(path string) int {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValType_Int)
		return val.asInt
	}
	panic(fmt.Sprintf("int setting `%s` does not exist", path))
}

func (c *Config) GetString(path string) string {
	if val, ok := (*c)[path]; ok {
		val.checkType(cfgValType_String)
		return val.asString
	}
	panic(fmt.Sprintf("string setting `%s` does not exist", path))
}

// yamlConfigDoc is the on-disk shape LoadConfigFile reads; only the
// fields a host is likely to want to override are exposed, everything
// else keeps NewConfig's default.
type yamlConfigDoc struct {
	Compiler struct {
		Optimize *int  `yaml:"optimize"`
		FoldPure *bool `yaml:"fold_pure"`
	} `yaml:"compiler"`
	VM struct {
		CheckArity *bool `yaml:"check_arity"`
	} `yaml:"vm"`
	GC struct {
		SmallSetBytes *int `yaml:"small_set_bytes"`
	} `yaml:"gc"`
	Module struct {
		SearchPaths *string `yaml:"search_paths"`
	} `yaml:"module"`
}

// LoadConfigFile reads a YAML document (e.g. a `slang.yaml` shipped
// beside a program) and layers its values over NewConfig's defaults.
func LoadConfigFile(path string) (*Config, error) {
	cfg := NewConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewError(FileError, Location{}, "reading config %q: %v", path, err)
	}
	var doc yamlConfigDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, NewError(ParseError, Location{}, "parsing config %q: %v", path, err)
	}
	if doc.Compiler.Optimize != nil {
		cfg.SetInt("compiler.optimize", *doc.Compiler.Optimize)
	}
	if doc.Compiler.FoldPure != nil {
		cfg.SetBool("compiler.fold_pure", *doc.Compiler.FoldPure)
	}
	if doc.VM.CheckArity != nil {
		cfg.SetBool("vm.check_arity", *doc.VM.CheckArity)
	}
	if doc.GC.SmallSetBytes != nil {
		cfg.SetInt("gc.small_set_bytes", *doc.GC.SmallSetBytes)
	}
	if doc.Module.SearchPaths != nil {
		cfg.SetString("module.search_paths", *doc.Module.SearchPaths)
	}
	return cfg, nil
}
