package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/buildgraph/internal/buildcontext"
	"github.com/tyemirov/buildgraph/internal/buildplan"
	"github.com/tyemirov/buildgraph/internal/cienv"
	"github.com/tyemirov/buildgraph/internal/gitversion"
	"github.com/tyemirov/buildgraph/internal/taskgraph"
	"github.com/tyemirov/buildgraph/pkg/taskrunner"
)

const (
	versionCommandUseNameConstant          = "version"
	versionCommandShortDescriptionConstant = "Print the buildgraph version"
	versionCommandLongDescriptionConstant  = "version prints the current buildgraph release identifier."
	listCommandUseNameConstant             = "list [goal]"
	listCommandAliasConstant               = "ls"
	listCommandShortDescriptionConstant    = "List build targets and the plan for a goal"
	listCommandLongDescriptionConstant     = "list prints every registered target with its relations, followed by the execution plan and trigger fan-out of the goal (pack by default)."
	runStartedMessageConstant              = "build requested"
	goalFieldConstant                      = "goal"
	configurationFieldConstant             = "configuration"
	semVerFieldConstant                    = "semver"
	branchFieldConstant                    = "branch"
	providerFieldConstant                  = "provider"
	versionCalculationErrorTemplate        = "unable to calculate version: %w"
	dependenciesErrorTemplate              = "unable to prepare build dependencies: %w"
	graphErrorTemplate                     = "unable to assemble build graph: %w"
	planGoalTemplateConstant               = "goal: %s\n"
	planOrderTemplateConstant              = "order: %s\n"
	planTriggerTemplateConstant            = "trigger: %s -> %s\n"
	planOrderSeparatorConstant             = " -> "
	taskLineTemplateConstant               = "%-16s %s\n"
	taskRelationTemplateConstant           = "%-16s   %s: %s\n"
	relationDependsOnConstant              = "depends on"
	relationBeforeConstant                 = "before"
	relationAfterConstant                  = "after"
	relationTriggersConstant               = "triggers"
	relationRequiresConstant               = "requires"
	relationOnlyWhenConstant               = "only when"
	relationProducesConstant               = "produces"
	relationListSeparatorConstant          = ", "
)

var errLoggerNotInitialized = errors.New(loggerNotInitializedMessageConstant)

func (application *Application) registerCommands(cobraCommand *cobra.Command) {
	versionCommand := &cobra.Command{
		Use:           versionCommandUseNameConstant,
		Short:         versionCommandShortDescriptionConstant,
		Long:          versionCommandLongDescriptionConstant,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			application.printVersion(command)
			return nil
		},
	}
	cobraCommand.AddCommand(versionCommand)

	listCommand := &cobra.Command{
		Use:           listCommandUseNameConstant,
		Aliases:       []string{listCommandAliasConstant},
		Short:         listCommandShortDescriptionConstant,
		Long:          listCommandLongDescriptionConstant,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runListCommand(command, arguments)
		},
	}
	cobraCommand.AddCommand(listCommand)
}

func (application *Application) runRootCommand(command *cobra.Command, arguments []string) error {
	if application.logger == nil {
		return errLoggerNotInitialized
	}
	if application.versionFlag {
		return nil
	}

	runOptions, _ := application.commandContextAccessor.RunOptions(command.Context())
	buildConfiguration := application.configuration.Build
	goal := buildConfiguration.ResolveGoal(arguments)

	if runOptions.PlanOnly {
		graph, _, graphError := application.offlineGraph(buildConfiguration)
		if graphError != nil {
			return graphError
		}
		return writePlan(command.OutOrStdout(), graph, goal)
	}

	rootDirectory := resolvedRootDirectory(buildConfiguration)
	dependencies, dependenciesError := taskrunner.BuildDependencies(
		taskrunner.DependenciesConfig{
			LoggerProvider:               func() *zap.Logger { return application.logger },
			HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
			CommandRunner:                application.commandRunner,
		},
		taskrunner.DependenciesOptions{Command: command, WorkingDirectory: rootDirectory},
	)
	if dependenciesError != nil {
		return fmt.Errorf(dependenciesErrorTemplate, dependenciesError)
	}

	executionContext := command.Context()
	environment := cienv.NewDetector(application.environmentLookup, dependencies.RepositoryManager, application.logger).Detect(executionContext, rootDirectory)

	parameters, parametersError := buildConfiguration.Parameters(buildcontext.DefaultConfiguration(environment))
	if parametersError != nil {
		return parametersError
	}

	versionInfo, versionError := gitversion.NewCalculator(dependencies.RepositoryManager, buildConfiguration.TagPattern, application.logger).
		Calculate(executionContext, rootDirectory, environment.Branch)
	if versionError != nil {
		return fmt.Errorf(versionCalculationErrorTemplate, versionError)
	}

	buildContext := buildcontext.NewExecutionContext(parameters, versionInfo, environment)
	graph := taskgraph.NewGraph(
		taskgraph.WithLogger(application.logger),
		taskgraph.WithProducesVerification(runOptions.VerifyProduces),
	)
	if registrationError := buildplan.NewTargets(dependencies.DotNet, application.logger).Register(graph, buildContext); registrationError != nil {
		return fmt.Errorf(graphErrorTemplate, registrationError)
	}

	application.logger.Info(runStartedMessageConstant,
		zap.String(goalFieldConstant, goal),
		zap.String(configurationFieldConstant, string(buildContext.Configuration())),
		zap.String(semVerFieldConstant, versionInfo.SemVer),
		zap.String(branchFieldConstant, environment.Branch),
		zap.String(providerFieldConstant, environment.Provider),
	)

	runner := taskrunner.Resolve(graph, taskrunner.SummaryOptions{
		Output:       dependencies.Output,
		Errors:       dependencies.Errors,
		ColorEnabled: !color.NoColor,
		ReportPath:   runOptions.ReportPath,
		Logger:       application.logger,
	})
	_, runError := runner.Execute(executionContext, goal, buildContext)
	return runError
}

func (application *Application) runListCommand(command *cobra.Command, arguments []string) error {
	buildConfiguration := application.configuration.Build
	graph, buildContext, graphError := application.offlineGraph(buildConfiguration)
	if graphError != nil {
		return graphError
	}

	writer := command.OutOrStdout()
	for _, task := range graph.Tasks() {
		fmt.Fprintf(writer, taskLineTemplateConstant, task.Name, task.Description)
		writeRelation(writer, relationDependsOnConstant, task.Dependencies)
		writeRelation(writer, relationBeforeConstant, task.Before)
		writeRelation(writer, relationAfterConstant, task.After)
		writeRelation(writer, relationOnlyWhenConstant, conditionDescriptions(task.Preconditions))
		writeRelation(writer, relationRequiresConstant, conditionDescriptions(task.Requirements))
		writeRelation(writer, relationProducesConstant, task.Produces)
		writeRelation(writer, relationTriggersConstant, task.Triggers)
	}
	fmt.Fprintln(writer)

	application.logger.Debug("targets listed", zap.Int("count", len(graph.Tasks())), zap.String(configurationFieldConstant, string(buildContext.Configuration())))
	return writePlan(writer, graph, buildConfiguration.ResolveGoal(arguments))
}

// offlineGraph registers the targets against a context without git or CI metadata; it only serves planning.
func (application *Application) offlineGraph(buildConfiguration BuildConfiguration) (*taskgraph.Graph, buildcontext.ExecutionContext, error) {
	parameters, parametersError := buildConfiguration.Parameters(buildcontext.ConfigurationDebug)
	if parametersError != nil {
		return nil, buildcontext.ExecutionContext{}, parametersError
	}
	buildContext := buildcontext.NewExecutionContext(parameters, buildcontext.VersionInfo{}, buildcontext.CIEnvironment{})

	graph := taskgraph.NewGraph(taskgraph.WithLogger(application.logger))
	if registrationError := buildplan.NewTargets(nil, application.logger).Register(graph, buildContext); registrationError != nil {
		return nil, buildcontext.ExecutionContext{}, fmt.Errorf(graphErrorTemplate, registrationError)
	}
	return graph, buildContext, nil
}

func writePlan(writer io.Writer, graph *taskgraph.Graph, goal string) error {
	plan, planError := graph.Plan(goal)
	if planError != nil {
		return planError
	}
	fmt.Fprintf(writer, planGoalTemplateConstant, plan.Goal)
	fmt.Fprintf(writer, planOrderTemplateConstant, strings.Join(plan.Order, planOrderSeparatorConstant))
	for _, edge := range plan.Triggers {
		fmt.Fprintf(writer, planTriggerTemplateConstant, edge.Source, edge.Target)
	}
	return nil
}

func writeRelation(writer io.Writer, relation string, values []string) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(writer, taskRelationTemplateConstant, "", relation, strings.Join(values, relationListSeparatorConstant))
}

func conditionDescriptions(conditions []taskgraph.Condition) []string {
	descriptions := make([]string, 0, len(conditions))
	for _, condition := range conditions {
		descriptions = append(descriptions, condition.Description)
	}
	return descriptions
}

func resolvedRootDirectory(buildConfiguration BuildConfiguration) string {
	if trimmed := strings.TrimSpace(buildConfiguration.RootDirectory); len(trimmed) > 0 {
		return trimmed
	}
	return defaultConfigurationSearchPathConstant
}
