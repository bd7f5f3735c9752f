package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/refractdb/refract/internal/config"
	"github.com/refractdb/refract/query/compiler"
	"github.com/refractdb/refract/query/domain"
	"github.com/refractdb/refract/query/sqlgen"
	"github.com/refractdb/refract/schema"
)

// NewCompileCommand creates the compile command: it lowers a YAML query
// description against a YAML schema and prints the generated SQL.
func NewCompileCommand(cfg *config.Config) *cobra.Command {
	var schemaPath, queryPath, provider string

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a query description to SQL",
		Long:  "Compile a YAML query description against a schema and print the parameterized SQL",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(schemaPath, queryPath, provider)
		},
	}

	cmd.Flags().StringVar(&schemaPath, "schema", cfg.SchemaPath, "Path to schema file")
	cmd.Flags().StringVarP(&queryPath, "query", "q", "query.yaml", "Path to query file")
	cmd.Flags().StringVar(&provider, "provider", cfg.Provider, "Target provider (postgres, mysql, sqlite)")

	return cmd
}

func runCompile(schemaPath, queryPath, provider string) error {
	s, err := loadSchema(schemaPath)
	if err != nil {
		return fmt.Errorf("failed to load schema: %w", err)
	}
	q, err := loadQuery(queryPath)
	if err != nil {
		return fmt.Errorf("failed to load query: %w", err)
	}

	res, ok := s.Resource(q.Resource)
	if !ok {
		return fmt.Errorf("schema does not declare resource %q", q.Resource)
	}

	gen := sqlgen.NewGenerator(provider)
	var query *sqlgen.Query
	switch q.Operation {
	case "", "list":
		compiled, err := compiler.CompileRead(res, q.readQuery())
		if err != nil {
			return err
		}
		query = gen.GenerateSelect(compiled)
	case "aggregate":
		compiled, err := compiler.CompileAggregate(res, q.aggregateQuery())
		if err != nil {
			return err
		}
		query = gen.GenerateAggregate(compiled)
	default:
		return fmt.Errorf("unsupported operation %q", q.Operation)
	}

	color.New(color.FgCyan, color.Bold).Println(query.SQL)
	for i, arg := range query.Args {
		fmt.Printf("  %s %v\n", color.YellowString("$%d =", i+1), arg)
	}
	return nil
}

// schemaFile is the YAML shape of a schema definition.
type schemaFile struct {
	Resources []struct {
		Name   string `yaml:"name"`
		Table  string `yaml:"table"`
		ID     string `yaml:"id"`
		Fields []struct {
			Name   string `yaml:"name"`
			Column string `yaml:"column"`
			Type   string `yaml:"type"`
		} `yaml:"fields"`
	} `yaml:"resources"`
}

func loadSchema(path string) (*schema.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file schemaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	s := schema.New()
	for _, r := range file.Resources {
		fields := make([]schema.Field, len(r.Fields))
		for i, f := range r.Fields {
			fields[i] = schema.Field{Name: f.Name, Column: f.Column, Type: f.Type}
		}
		table := r.Table
		if table == "" {
			table = r.Name
		}
		s.Add(schema.NewResource(r.Name, table, r.ID, fields...))
	}
	return s, nil
}

// queryFile is the YAML shape of a query description.
type queryFile struct {
	Resource  string      `yaml:"resource"`
	Operation string      `yaml:"operation"`
	Fields    []string    `yaml:"fields"`
	Filter    *filterNode `yaml:"filter"`
	Sort      []struct {
		Field string `yaml:"field"`
		Order string `yaml:"order"`
	} `yaml:"sort"`
	Pagination *struct {
		Mode     string `yaml:"mode"`
		Current  int    `yaml:"current"`
		PageSize int    `yaml:"pageSize"`
	} `yaml:"pagination"`
	GroupBy   []string `yaml:"groupBy"`
	Functions []struct {
		Func  string `yaml:"func"`
		Field string `yaml:"field"`
		Alias string `yaml:"alias"`
	} `yaml:"functions"`
	Having []filterNode `yaml:"having"`
}

// filterNode is the YAML union of a leaf comparison and a composite group.
type filterNode struct {
	Field    string       `yaml:"field"`
	Operator string       `yaml:"operator"`
	Value    interface{}  `yaml:"value"`
	Children []filterNode `yaml:"children"`
}

func (n *filterNode) toDomain() domain.FilterNode {
	if n == nil {
		return nil
	}
	if n.Field == "" {
		children := make([]domain.FilterNode, 0, len(n.Children))
		for i := range n.Children {
			children = append(children, n.Children[i].toDomain())
		}
		return &domain.Composite{
			Operator: domain.LogicalOperator(n.Operator),
			Children: children,
		}
	}
	return &domain.Leaf{
		Field:    n.Field,
		Operator: domain.FilterOperator(n.Operator),
		Value:    n.Value,
	}
}

func loadQuery(path string) (*queryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var q queryFile
	if err := yaml.Unmarshal(data, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func (q *queryFile) readQuery() *domain.ReadQuery {
	read := &domain.ReadQuery{
		Fields: q.Fields,
		Filter: q.Filter.toDomain(),
	}
	for _, s := range q.Sort {
		read.Sort = append(read.Sort, domain.Sorter{
			Field: s.Field,
			Order: domain.SortDirection(s.Order),
		})
	}
	if p := q.Pagination; p != nil {
		read.Pagination = &domain.PaginationSpec{
			Mode:     domain.PaginationMode(p.Mode),
			Current:  p.Current,
			PageSize: p.PageSize,
		}
	}
	return read
}

func (q *queryFile) aggregateQuery() *domain.AggregateQuery {
	agg := &domain.AggregateQuery{
		Filter:  q.Filter.toDomain(),
		GroupBy: q.GroupBy,
	}
	for _, fn := range q.Functions {
		agg.Functions = append(agg.Functions, domain.AggregateFunction{
			Func:  domain.AggregateFunc(fn.Func),
			Field: fn.Field,
			Alias: fn.Alias,
		})
	}
	for i := range q.Having {
		agg.Having = append(agg.Having, q.Having[i].toDomain())
	}
	return agg
}
