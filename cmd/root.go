package cmd

import (
	"context"
	"os"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Nicolas-Richard/k8s-pdb-checker/pkg/collector"
	"github.com/Nicolas-Richard/k8s-pdb-checker/pkg/coverage"
	"github.com/Nicolas-Richard/k8s-pdb-checker/pkg/kube"
	"github.com/Nicolas-Richard/k8s-pdb-checker/pkg/output"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "k8s-pdb-checker",
	Short: "Audit Kubernetes workloads for missing PodDisruptionBudgets",
	Long: `k8s-pdb-checker lists every Deployment, StatefulSet, DaemonSet and Argo
Rollout in the cluster and reports which ones no PodDisruptionBudget
selects, along with the label selector a new PDB would need.`,
	Run: func(cmd *cobra.Command, args []string) {
		runAudit()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "Enable debug logging.")
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	rootCmd.PersistentFlags().Bool("hide-covered", false, "Hide workloads that already have a matching PDB.")
	viper.BindPFlag("hide-covered", rootCmd.PersistentFlags().Lookup("hide-covered"))
	rootCmd.PersistentFlags().Bool("hide-zero-replicas", false, "Hide workloads scaled to zero replicas.")
	viper.BindPFlag("hide-zero-replicas", rootCmd.PersistentFlags().Lookup("hide-zero-replicas"))
	rootCmd.PersistentFlags().String("output-file", "", "Destination file for audit results in JSON format.")
	viper.BindPFlag("output-file", rootCmd.PersistentFlags().Lookup("output-file"))
	viper.AutomaticEnv() // read in environment variables that match
}

func runAudit() {
	if viper.GetBool("debug") {
		logrus.SetLevel(logrus.DebugLevel)
	}
	ctx := context.Background()

	client, err := kube.GetClient()
	if err != nil {
		logrus.Fatalf("Error creating Kubernetes client: %v", err)
	}
	logrus.Infof("connected to kube at %s", client.Host)

	workloads, warnings, err := collector.CollectAll(ctx, client)
	if err != nil {
		logrus.Fatalf("Error fetching workloads: %v", err)
	}
	pdbsByNamespace, pdbWarnings, err := collector.CollectPDBs(ctx, client)
	if err != nil {
		logrus.Fatalf("Error fetching PodDisruptionBudgets: %v", err)
	}
	warnings = append(warnings, pdbWarnings...)

	if viper.GetBool("hide-zero-replicas") {
		workloads = lo.Filter(workloads, func(w coverage.Workload, _ int) bool {
			return w.Replicas == nil || *w.Replicas != 0
		})
	}

	results := coverage.Classify(workloads, pdbsByNamespace)
	summary := coverage.Summarize(results)

	for _, warning := range warnings {
		logrus.Warnf("skipping %s %s/%s: %s", warning.Kind, warning.Namespace, warning.Name, warning.Reason)
	}

	output.WriteText(os.Stdout, results, summary, viper.GetBool("hide-covered"))

	if outputFile := viper.GetString("output-file"); outputFile != "" {
		report := output.Report{Results: results, Warnings: warnings, Summary: summary}
		if err := output.WriteJSONFile(outputFile, report); err != nil {
			logrus.Fatalf("Error writing output to file: %v", err)
		}
	}
}
