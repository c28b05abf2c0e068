// Package analysis turns recorded joint trajectories into summaries:
//
//   - [PowerSpectrum]: magnitude spectrum of a uniformly sampled column
//   - [Portrait]: 2D phase space trajectory, rendered as ASCII
//   - [PoincareSection]: points where one column crosses a threshold
//
// # Usage
//
//	table, _ := store.LoadStates(runID)
//	qpos, _ := table.Column("shoulder.qpos")
//	qvel, _ := table.Column("shoulder.qvel")
//	fmt.Print(analysis.NewPortrait(qpos, qvel).ASCII(60, 20))
package analysis
