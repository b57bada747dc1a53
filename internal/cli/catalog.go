package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/lunamall/lunamall/internal/domain"
)

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskListCmd)

	taskCreateCmd.Flags().Int64("reward", 10, "Points credited on completion")
	taskCreateCmd.Flags().String("type", string(domain.TaskOneTime), "Task type: one_time, daily, or repeatable")
	taskCreateCmd.Flags().Int64("max", 0, "Completion cap for repeatable tasks (0 = unbounded)")
	taskCreateCmd.Flags().Duration("cooldown", 0, "Minimum wait between repeatable completions")

	rootCmd.AddCommand(productCmd)
	productCmd.AddCommand(productAddCmd)

	productAddCmd.Flags().Int64("points", 100, "Points required per unit")
	productAddCmd.Flags().Int64("stock", domain.UnboundedStock, "Initial stock (-1 = unbounded)")
	productAddCmd.Flags().Int64("max-per-user", 0, "Per-account exchange cap (0 = unbounded)")
	productAddCmd.Flags().Int64("min-balance", 0, "Minimum balance required to exchange")

	rootCmd.AddCommand(activityCmd)
	activityCmd.AddCommand(activityCreateCmd)
	activityCmd.AddCommand(activityAddPrizeCmd)

	activityCreateCmd.Flags().Int64("cost", 0, "Points cost per draw")
	activityCreateCmd.Flags().Int64("max-draws", 0, "Per-account draw cap (0 = unbounded)")
	activityCreateCmd.Flags().Duration("duration", 30*24*time.Hour, "How long the activity stays open")
	activityCreateCmd.Flags().String("id", "", "Explicit activity id (default random)")

	activityAddPrizeCmd.Flags().Int64("weight", 1, "Relative selection weight")
	activityAddPrizeCmd.Flags().Int64("stock", domain.UnboundedStock, "Prize stock (-1 = unbounded)")
	activityAddPrizeCmd.Flags().String("type", string(domain.PrizeThankYou), "Prize type: points, virtual, physical, or thank_you")
	activityAddPrizeCmd.Flags().Int64("points", 0, "Points value for points prizes")
}

// ─── task ───────────────────────────────────────────────────────────────────

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage reward tasks",
}

var taskCreateCmd = &cobra.Command{
	Use:   "create CODE TITLE",
	Short: "Register a reward task",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskCreate,
}

func runTaskCreate(cmd *cobra.Command, args []string) error {
	reward, _ := cmd.Flags().GetInt64("reward")
	taskType, _ := cmd.Flags().GetString("type")
	max, _ := cmd.Flags().GetInt64("max")
	cooldown, _ := cmd.Flags().GetDuration("cooldown")

	switch domain.TaskType(taskType) {
	case domain.TaskOneTime, domain.TaskDaily, domain.TaskRepeatable:
	default:
		return fmt.Errorf("unknown task type %q", taskType)
	}

	_, db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	task := domain.Task{
		ID:             uuid.NewString(),
		Code:           args[0],
		Title:          args[1],
		PointsReward:   reward,
		Type:           domain.TaskType(taskType),
		Active:         true,
		MaxCompletions: max,
		Cooldown:       cooldown,
	}
	if err := db.InsertTask(cmd.Context(), task); err != nil {
		return err
	}
	fmt.Printf("task %s created (%s, %d points)\n", task.Code, task.Type, task.PointsReward)
	return nil
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered tasks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		tasks, err := db.ListTasks(cmd.Context(), false)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		defer w.Flush()
		fmt.Fprintln(w, "CODE\tTYPE\tREWARD\tACTIVE")
		for _, task := range tasks {
			fmt.Fprintf(w, "%s\t%s\t%d\t%t\n", task.Code, task.Type, task.PointsReward, task.Active)
		}
		return nil
	},
}

// ─── product ────────────────────────────────────────────────────────────────

var productCmd = &cobra.Command{
	Use:   "product",
	Short: "Manage points-mall products",
}

var productAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Put a product on the shelf",
	Args:  cobra.ExactArgs(1),
	RunE:  runProductAdd,
}

func runProductAdd(cmd *cobra.Command, args []string) error {
	points, _ := cmd.Flags().GetInt64("points")
	stock, _ := cmd.Flags().GetInt64("stock")
	maxPerUser, _ := cmd.Flags().GetInt64("max-per-user")
	minBalance, _ := cmd.Flags().GetInt64("min-balance")

	_, db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	p := domain.PointsProduct{
		ID:                 uuid.NewString(),
		Name:               args[0],
		PointsRequired:     points,
		RemainingStock:     stock,
		Active:             true,
		MaxExchangePerUser: maxPerUser,
		MinPointsBalance:   minBalance,
	}
	if err := db.InsertProduct(cmd.Context(), p); err != nil {
		return err
	}
	fmt.Printf("product %s on shelf: %q for %d points\n", p.ID, p.Name, p.PointsRequired)
	return nil
}

// ─── activity ───────────────────────────────────────────────────────────────

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Manage lottery activities and their prize pools",
}

var activityCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Open a lottery activity",
	Args:  cobra.ExactArgs(1),
	RunE:  runActivityCreate,
}

func runActivityCreate(cmd *cobra.Command, args []string) error {
	cost, _ := cmd.Flags().GetInt64("cost")
	maxDraws, _ := cmd.Flags().GetInt64("max-draws")
	duration, _ := cmd.Flags().GetDuration("duration")
	id, _ := cmd.Flags().GetString("id")
	if id == "" {
		id = uuid.NewString()
	}

	_, db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	now := time.Now()
	a := domain.LotteryActivity{
		ID:              id,
		Name:            args[0],
		Status:          domain.ActivityActive,
		Active:          true,
		StartAt:         now,
		EndAt:           now.Add(duration),
		PointsCost:      cost,
		MaxDrawsPerUser: maxDraws,
	}
	if err := db.InsertActivity(cmd.Context(), a); err != nil {
		return err
	}
	fmt.Printf("activity %s open until %s\n", a.ID, a.EndAt.Format(time.RFC3339))
	return nil
}

var activityAddPrizeCmd = &cobra.Command{
	Use:   "add-prize ACTIVITY_ID NAME",
	Short: "Add a prize to an activity's pool",
	Args:  cobra.ExactArgs(2),
	RunE:  runActivityAddPrize,
}

func runActivityAddPrize(cmd *cobra.Command, args []string) error {
	weight, _ := cmd.Flags().GetInt64("weight")
	stock, _ := cmd.Flags().GetInt64("stock")
	prizeType, _ := cmd.Flags().GetString("type")
	points, _ := cmd.Flags().GetInt64("points")

	switch domain.PrizeType(prizeType) {
	case domain.PrizePoints, domain.PrizeVirtual, domain.PrizePhysical, domain.PrizeThankYou:
	default:
		return fmt.Errorf("unknown prize type %q", prizeType)
	}
	if weight <= 0 {
		return fmt.Errorf("weight must be positive, got %d", weight)
	}

	_, db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	id, err := db.InsertCandidate(cmd.Context(), domain.PrizeCandidate{
		PoolID:         args[0],
		Name:           args[1],
		Type:           domain.PrizeType(prizeType),
		Weight:         weight,
		RemainingStock: stock,
		PointsValue:    points,
		Active:         true,
	})
	if err != nil {
		return err
	}
	fmt.Printf("prize %d added to pool %s (weight %d)\n", id, args[0], weight)
	return nil
}
