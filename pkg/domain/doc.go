/*
Package domain contains the core vocabulary of the pipeline graph.

It defines the declarations that describe a pipeline (process specs, parameter
specs, overrides, switch specs), the endpoint notation used to address plugs,
the activation transition events, and the error taxonomy shared by the graph,
the builder and the codecs. The package is pure: no I/O, no logging.

# Key Entities

  - ProcessSpec: the declared parameter set of a computational unit.
  - ParamSpec: one parameter, which becomes one plug on a node.
  - SwitchSpec: alternatives and shared outputs of a switch node.
  - Endpoint: a (node, plug) pair; an empty node denotes the pipeline boundary.
  - Transition: one activation change emitted by the engine.
*/
package domain
